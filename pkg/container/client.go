package container

import (
	"context"
	"fmt"
	"io"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/sirupsen/logrus"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerFiltersType "github.com/docker/docker/api/types/filters"
	dockerImageType "github.com/docker/docker/api/types/image"
	dockerClient "github.com/docker/docker/client"

	"github.com/boingbasti/docker-update-commander/pkg/registry"
	"github.com/boingbasti/docker-update-commander/pkg/types"
)

// client is the concrete implementation of the types.Client interface.
//
// It wraps the Docker API client and carries the orchestrator's own
// container identity for self-protection tagging.
type client struct {
	api dockerClient.APIClient
	ClientOptions
	selfID types.ContainerID
}

// ClientOptions configures the behavior of the dockerClient wrapper around the Docker API.
type ClientOptions struct {
	// UpdaterImage is the delegated updater image reference; containers
	// running it are tagged IsUpdater in inventory records.
	UpdaterImage string
}

// NewClient initializes a new Client instance for Docker API interactions.
//
// It configures the client from environment variables (e.g., DOCKER_HOST,
// DOCKER_API_VERSION) with API version negotiation and detects the
// orchestrator's own container identity once at startup.
//
// Parameters:
//   - opts: Options to customize inventory behavior.
//
// Returns:
//   - types.Client: Initialized client instance (exits on failure).
func NewClient(opts ClientOptions) types.Client {
	ctx := context.Background()

	cli, err := dockerClient.NewClientWithOpts(
		dockerClient.FromEnv,
		dockerClient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize Docker client")
	}

	cli.NegotiateAPIVersion(ctx)

	if serverVersion, err := cli.ServerVersion(ctx); err != nil {
		logrus.WithFields(logrus.Fields{
			"error":    err,
			"endpoint": "/version",
		}).Error("Failed to retrieve server version")
	} else {
		logrus.WithFields(logrus.Fields{
			"client_version": cli.ClientVersion(),
			"server_version": serverVersion.APIVersion,
		}).Debug("Initialized Docker client")
	}

	return &client{
		api:           cli,
		ClientOptions: opts,
		selfID:        DetectSelfID(),
	}
}

// SelfID returns the orchestrator's own container identity, empty when
// the process does not run inside a container.
func (c *client) SelfID() types.ContainerID {
	return c.selfID
}

// APIVersion returns the negotiated Docker API version, propagated to
// delegated updater containers so they speak the same dialect.
func (c *client) APIVersion() string {
	return c.api.ClientVersion()
}

// ListContainers enumerates the running containers on the host into
// fresh inventory records. Records are rebuilt from live inspect data on
// every call; nothing is cached between passes.
//
// Parameters:
//   - ctx: Context for operation control.
//
// Returns:
//   - []types.Record: Current inventory, one record per running container.
//   - error: ErrInventoryUnavailable if the Docker API is unreachable.
func (c *client) ListContainers(ctx context.Context) ([]types.Record, error) {
	filterArgs := dockerFiltersType.NewArgs()
	filterArgs.Add("status", "running")

	containers, err := c.api.ContainerList(ctx, dockerContainerType.ListOptions{Filters: filterArgs})
	if err != nil {
		logrus.WithError(err).Debug("Failed to list containers")

		return nil, fmt.Errorf("%w: %w", ErrInventoryUnavailable, err)
	}

	records := make([]types.Record, 0, len(containers))

	for _, summary := range containers {
		record, err := c.inspectRecord(ctx, summary.ID)
		if err != nil {
			// Containers can vanish between list and inspect; skip them.
			if cerrdefs.IsNotFound(err) {
				logrus.WithField("container_id", summary.ID).
					Debug("Container gone before inspect, skipping")

				continue
			}

			return nil, err
		}

		records = append(records, record)
	}

	logrus.WithField("count", len(records)).Debug("Built container inventory")

	return records, nil
}

// inspectRecord builds a single inventory record from live inspect data.
func (c *client) inspectRecord(ctx context.Context, containerID string) (types.Record, error) {
	containerInfo, err := c.api.ContainerInspect(ctx, containerID)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return types.Record{}, err
		}

		logrus.WithError(err).
			WithField("container_id", containerID).
			Debug("Failed to inspect container")

		return types.Record{}, fmt.Errorf("%w: %w", errInspectContainerFailed, err)
	}

	// Image info may be unavailable (e.g. image removed under a running
	// container); degrade to a record without digests.
	var repoDigests []string

	imageInfo, err := c.api.ImageInspect(ctx, containerInfo.Image)
	if err != nil {
		logrus.WithError(err).
			WithField("container_id", containerID).
			Warn("Failed to retrieve image info")
	} else {
		repoDigests = imageInfo.RepoDigests
	}

	return newRecord(&containerInfo, repoDigests, c.selfID, c.UpdaterImage), nil
}

// newRecord assembles an inventory record from inspect data. Pure so that
// identity and classification rules are testable without a Docker host.
func newRecord(
	containerInfo *dockerContainerType.InspectResponse,
	repoDigests []string,
	selfID types.ContainerID,
	updaterImage string,
) types.Record {
	containerID := types.ContainerID(containerInfo.ID)
	imageName := containerInfo.Config.Image

	return types.Record{
		ID:          containerID,
		Name:        strings.TrimPrefix(containerInfo.Name, "/"),
		ImageName:   imageName,
		ImageID:     types.ImageID(containerInfo.Image),
		RepoDigests: repoDigests,
		Labels:      containerInfo.Config.Labels,
		IsSelf:      MatchesSelf(selfID, containerID),
		IsUpdater:   isUpdaterImage(imageName, updaterImage),
		LocalOnly:   len(repoDigests) == 0,
	}
}

// isUpdaterImage reports whether an image reference names the delegated
// updater image, ignoring the tag.
func isUpdaterImage(imageName, updaterImage string) bool {
	if updaterImage == "" {
		return false
	}

	repo, _, _ := strings.Cut(imageName, ":")
	updaterRepo, _, _ := strings.Cut(updaterImage, ":")

	return repo == updaterRepo
}

// PullImage pulls an image to the local daemon, using registry
// credentials from the environment or the Docker config when available.
//
// Parameters:
//   - ctx: Context for operation control.
//   - imageRef: Image reference to pull.
//
// Returns:
//   - error: Non-nil if the pull fails, nil on success.
func (c *client) PullImage(ctx context.Context, imageRef string) error {
	clog := logrus.WithField("image", imageRef)

	opts, err := registry.GetPullOptions(imageRef)
	if err != nil {
		clog.WithError(err).Debug("Failed to build pull options, pulling anonymously")

		opts = dockerImageType.PullOptions{}
	}

	clog.Debug("Initiating image pull")

	response, err := c.api.ImagePull(ctx, imageRef, opts)
	if err != nil {
		clog.WithError(err).Debug("Failed to initiate image pull")

		return fmt.Errorf("%w: %s: %w", errPullImageFailed, imageRef, err)
	}
	defer response.Close()

	// Drain the response to completion; the pull runs server-side as the
	// stream is consumed.
	if _, err = io.Copy(io.Discard, response); err != nil {
		clog.WithError(err).Debug("Failed to read image pull response")

		return fmt.Errorf("%w: %s: %w", errPullImageFailed, imageRef, err)
	}

	clog.Debug("Image pull completed")

	return nil
}
