// Package container provides the Docker-backed container inventory and
// the delegated updater invocation for docker-update-commander.
//
// Key components:
//   - Client: implements types.Client against the Docker engine API,
//     enumerating running containers into fresh records per pass.
//   - Self-detection: resolves the orchestrator's own container identity
//     from cgroup data with a hostname fallback, feeding the
//     self-protection filter.
//   - Updater invocation: runs the delegated updater image as a one-off
//     container scoped to an explicit target set and returns its exit
//     code and logs.
//
// The package integrates with Docker's API via the docker/docker client
// library and classifies API failures using containerd/errdefs.
package container
