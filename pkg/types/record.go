package types

import (
	"strings"
)

// Record describes one running container as observed during an inventory
// pass. Records are rebuilt from scratch on every pass and never cached
// between passes.
type Record struct {
	// ID is the host-assigned container identifier.
	ID ContainerID
	// Name is the container name without the leading slash.
	Name string
	// ImageName is the image reference the container was created from,
	// including the tag (e.g. "nginx:latest").
	ImageName string
	// ImageID is the ID of the image currently backing the container.
	ImageID ImageID
	// RepoDigests holds the repo digests of the running image, empty for
	// images that were never pulled from or pushed to a registry.
	RepoDigests []string
	// Labels are the container labels at scan time.
	Labels map[string]string
	// IsSelf is true when this record corresponds to the orchestrator's
	// own container. Computed once per pass from the process identity.
	IsSelf bool
	// IsUpdater is true when the container runs the delegated updater
	// image. Such containers are never tracked or targeted.
	IsUpdater bool
	// LocalOnly is the advisory pre-filter flag derived from the image
	// metadata. The registry resolver has final authority.
	LocalOnly bool
}

// CurrentDigest returns the hash part of the first repo digest, or an
// empty string when the image carries no repo digests.
//
// Returns:
//   - string: Raw digest value without repository or algorithm prefix.
func (r Record) CurrentDigest() string {
	if len(r.RepoDigests) == 0 {
		return ""
	}

	_, digest, found := strings.Cut(r.RepoDigests[0], "@")
	if !found {
		return ""
	}

	return strings.TrimPrefix(digest, "sha256:")
}
