package container

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/sirupsen/logrus"

	dockerContainerType "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/boingbasti/docker-update-commander/internal/util"
	"github.com/boingbasti/docker-update-commander/pkg/types"
)

// dockerSocketBind mounts the host control socket into the delegated
// updater container so it can manage sibling containers.
const dockerSocketBind = "/var/run/docker.sock:/var/run/docker.sock"

// updaterNamePrefix prefixes one-off updater container names so they are
// recognizable in `docker ps` output and logs.
const updaterNamePrefix = "update-commander-run-"

// RunUpdater executes the delegated updater image as a one-off container
// scoped to an explicit target set and blocks until it exits.
//
// The updater runs with the host control socket bound in and the
// negotiated API version pinned via DOCKER_API_VERSION, so the one-off
// container speaks the same API dialect as the orchestrator. The
// container is always removed afterwards, even on failure paths.
//
// Parameters:
//   - ctx: Context bounding the whole invocation; cancellation abandons
//     the wait but still triggers cleanup.
//   - opts: Updater image, target names, exclusions, and timeout.
//
// Returns:
//   - types.UpdaterRunResult: Exit code and captured logs of the run.
//   - error: Non-nil if the updater could not be created, started, or awaited.
func (c *client) RunUpdater(
	ctx context.Context,
	opts types.UpdaterRunOptions,
) (types.UpdaterRunResult, error) {
	name := updaterNamePrefix + util.RandName()
	clog := logrus.WithFields(logrus.Fields{
		"image":   opts.Image,
		"name":    name,
		"targets": opts.Targets,
	})

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)

		defer cancel()
	}

	config := &dockerContainerType.Config{
		Image: opts.Image,
		Cmd:   updaterCommand(opts),
		Env:   []string{"DOCKER_API_VERSION=" + c.APIVersion()},
	}
	hostConfig := &dockerContainerType.HostConfig{
		Binds: []string{dockerSocketBind},
	}

	clog.Debug("Creating updater container")

	createdContainer, err := c.api.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		clog.WithError(err).Debug("Failed to create updater container")

		return types.UpdaterRunResult{}, fmt.Errorf("%w: %w", errCreateUpdaterFailed, err)
	}

	defer c.removeUpdater(createdContainer.ID, clog)

	if err := c.api.ContainerStart(ctx, createdContainer.ID, dockerContainerType.StartOptions{}); err != nil {
		clog.WithError(err).Debug("Failed to start updater container")

		return types.UpdaterRunResult{}, fmt.Errorf("%w: %w", errStartUpdaterFailed, err)
	}

	clog.Info("Started delegated updater container")

	exitCode, err := c.waitForUpdater(ctx, createdContainer.ID)
	if err != nil {
		clog.WithError(err).Debug("Failed to wait for updater container")

		return types.UpdaterRunResult{}, fmt.Errorf("%w: %w", errWaitUpdaterFailed, err)
	}

	logs := c.updaterLogs(createdContainer.ID, clog)

	clog.WithField("exit_code", exitCode).Info("Delegated updater run finished")

	return types.UpdaterRunResult{ExitCode: exitCode, Logs: logs}, nil
}

// updaterCommand builds the delegated updater's argument vector: a
// single-run invocation naming each target explicitly, with the
// orchestrator's own container and the updater image excluded as a
// second line of defense behind the target filter.
func updaterCommand(opts types.UpdaterRunOptions) []string {
	cmd := []string{"--run-once"}
	cmd = append(cmd, opts.Targets...)

	if len(opts.Exclusions) > 0 {
		cmd = append(cmd, "--disable-containers", strings.Join(opts.Exclusions, ","))
	}

	return cmd
}

// waitForUpdater blocks until the updater container exits and returns its
// exit code.
func (c *client) waitForUpdater(ctx context.Context, containerID string) (int64, error) {
	waitCh, errCh := c.api.ContainerWait(ctx, containerID, dockerContainerType.WaitConditionNotRunning)

	select {
	case response := <-waitCh:
		if response.Error != nil {
			return 0, fmt.Errorf("%w: %s", errWaitUpdaterFailed, response.Error.Message)
		}

		return response.StatusCode, nil
	case err := <-errCh:
		return 0, err
	}
}

// updaterLogs captures the updater container's combined output. Log
// retrieval is best-effort; a failure degrades the result, not the run.
func (c *client) updaterLogs(containerID string, clog *logrus.Entry) string {
	// Fresh context: the run context may already be cancelled.
	reader, err := c.api.ContainerLogs(
		context.Background(),
		containerID,
		dockerContainerType.LogsOptions{ShowStdout: true, ShowStderr: true},
	)
	if err != nil {
		clog.WithError(err).Debug("Failed to fetch updater logs")

		return ""
	}
	defer reader.Close()

	// Docker multiplexes stdout and stderr; demultiplex into one stream.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		clog.WithError(err).Debug("Failed to read updater logs")
	}

	return buf.String()
}

// removeUpdater force-removes a finished or failed updater container.
func (c *client) removeUpdater(containerID string, clog *logrus.Entry) {
	err := c.api.ContainerRemove(
		context.Background(),
		containerID,
		dockerContainerType.RemoveOptions{Force: true},
	)
	if err != nil && !cerrdefs.IsNotFound(err) {
		clog.WithError(err).Warn("Failed to remove updater container")
	}
}
