package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/pkg/registry/digest"
	"github.com/boingbasti/docker-update-commander/pkg/registry/helpers"
	"github.com/boingbasti/docker-update-commander/pkg/types"
)

// Classification values for a resolve outcome.
const (
	// Unresolved indicates a transient failure; the lookup is retried on
	// the next pass and never cached as permanent.
	Unresolved Classification = iota
	// UpToDate indicates the running digest matches the registry.
	UpToDate
	// UpdateAvailable indicates the registry holds a newer digest.
	UpdateAvailable
	// LocalOnly indicates the image has no resolvable remote source.
	// This is a terminal classification, not an error.
	LocalOnly
)

// Classification is the outcome category of a digest resolution.
type Classification int

// String returns the classification name for logging.
func (c Classification) String() string {
	switch c {
	case UpToDate:
		return "up_to_date"
	case UpdateAvailable:
		return "update_available"
	case LocalOnly:
		return "local_only"
	case Unresolved:
		return "unresolved"
	default:
		return "unresolved"
	}
}

// Result carries the outcome of resolving one container's image.
type Result struct {
	// Classification is the resolved outcome category.
	Classification Classification
	// RemoteDigest is the normalized registry digest, set for UpToDate
	// and UpdateAvailable outcomes.
	RemoteDigest string
	// Err holds the transient failure for Unresolved outcomes.
	Err error
}

// DefaultTimeout bounds a single digest lookup against an unresponsive
// registry so one slow registry cannot stall a whole pass.
const DefaultTimeout = 30 * time.Second

// minDigestParts is the minimum part count of a well-formed repo digest
// split on "@".
const minDigestParts = 2

// Resolver determines whether a newer image digest is available for a
// container record. It is read-only towards the registry: only manifest
// metadata is requested, never image content.
type Resolver struct {
	timeout time.Duration

	// fetchDigest and credentials are swappable for tests.
	fetchDigest func(ctx context.Context, imageName, registryAuth string) (string, error)
	credentials func(ref string) (string, error)
}

// NewResolver creates a Resolver with the given per-lookup timeout. A
// non-positive timeout falls back to DefaultTimeout.
func NewResolver(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Resolver{
		timeout:     timeout,
		fetchDigest: digest.FetchRemoteDigest,
		credentials: EncodedAuth,
	}
}

// Resolve classifies a container's image against its registry.
//
// Images without any repo digest never reached a registry and classify as
// LocalOnly before any network call. A registry that has no manifest for
// the reference also classifies as LocalOnly. Network, auth, and parse
// failures yield Unresolved with the error attached; they are transient
// from the caller's perspective.
//
// Parameters:
//   - ctx: Context for cancellation; the per-lookup timeout is layered on top.
//   - record: Container record from the current inventory pass.
//
// Returns:
//   - Result: Classification plus remote digest or error.
func (r *Resolver) Resolve(ctx context.Context, record types.Record) Result {
	fields := logrus.Fields{
		"container": record.Name,
		"image":     record.ImageName,
	}

	if record.LocalOnly || len(record.RepoDigests) == 0 {
		logrus.WithFields(fields).Debug("Image has no repo digests, classifying as local-only")

		return Result{Classification: LocalOnly}
	}

	registryAuth, err := r.credentials(record.ImageName)
	if err != nil {
		logrus.WithError(err).WithFields(fields).
			Debug("Failed to retrieve registry credentials, continuing anonymously")

		registryAuth = ""
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	remoteDigest, err := r.fetchDigest(lookupCtx, record.ImageName, registryAuth)
	if err != nil {
		if errors.Is(err, digest.ErrManifestNotFound) {
			logrus.WithFields(fields).
				Info("Image not found on any registry, treating as local image")

			return Result{Classification: LocalOnly}
		}

		logrus.WithError(err).WithFields(fields).Debug("Digest lookup failed")

		return Result{Classification: Unresolved, Err: err}
	}

	if digestsMatch(record.RepoDigests, remoteDigest) {
		logrus.WithFields(fields).
			WithField("remote_digest", remoteDigest).
			Debug("Local digest matches registry")

		return Result{Classification: UpToDate, RemoteDigest: remoteDigest}
	}

	logrus.WithFields(fields).
		WithField("remote_digest", remoteDigest).
		Debug("Registry digest differs from local")

	return Result{Classification: UpdateAvailable, RemoteDigest: remoteDigest}
}

// digestsMatch reports whether any local repo digest matches the remote
// digest after normalization.
func digestsMatch(localDigests []string, remoteDigest string) bool {
	normalizedRemote := helpers.NormalizeDigest(remoteDigest)

	for _, localDigest := range localDigests {
		parts := strings.Split(localDigest, "@")
		if len(parts) < minDigestParts {
			continue // Skip malformed digests.
		}

		if helpers.NormalizeDigest(parts[1]) == normalizedRemote {
			return true
		}
	}

	return false
}
