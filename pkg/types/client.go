package types

import (
	"context"
	"time"
)

// UpdaterRunOptions configures one delegated updater invocation.
type UpdaterRunOptions struct {
	// Image is the delegated updater image reference.
	Image string
	// Targets are the container names the updater is scoped to. The
	// updater is never invoked with an empty target set.
	Targets []string
	// Exclusions are container names the updater must leave alone even
	// if they somehow match the target scope. Defense in depth on top of
	// the pre-filtered target set.
	Exclusions []string
	// Timeout bounds the whole invocation, zero means no bound.
	Timeout time.Duration
}

// UpdaterRunResult carries the outcome of a delegated updater invocation.
type UpdaterRunResult struct {
	// ExitCode is the updater container's exit code.
	ExitCode int64
	// Logs is the combined stdout/stderr output of the updater.
	Logs string
}

// Client defines the interface the Docker-backed container package
// exposes to the rest of the system.
type Client interface {
	// ListContainers enumerates the running containers on the host and
	// returns a fresh record per container. It returns an error wrapping
	// ErrInventoryUnavailable when the Docker socket is unreachable; no
	// partial results are returned in that case.
	ListContainers(ctx context.Context) ([]Record, error)

	// SelfID returns the orchestrator's own container identity, or an
	// empty ID when the process does not run inside a container.
	SelfID() ContainerID

	// PullImage pulls an image by reference, used to refresh the
	// delegated updater image before dispatch.
	PullImage(ctx context.Context, imageRef string) error

	// RunUpdater executes the delegated updater as a one-off container
	// scoped to the given targets and blocks until it exits.
	RunUpdater(ctx context.Context, opts UpdaterRunOptions) (UpdaterRunResult, error)

	// APIVersion reports the negotiated Docker API version, used in
	// startup logging.
	APIVersion() string
}
