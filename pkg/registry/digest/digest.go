// Package digest retrieves image digests from container registries using
// lightweight manifest requests. A HEAD request against the manifest
// endpoint yields the Docker-Content-Digest header without transferring
// the image, with a GET fallback for registries that omit the header.
package digest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/pkg/registry/auth"
	"github.com/boingbasti/docker-update-commander/pkg/registry/helpers"
	"github.com/boingbasti/docker-update-commander/pkg/registry/manifest"
)

// ContentDigestHeader is the HTTP header carrying the manifest digest.
const ContentDigestHeader = "Docker-Content-Digest"

// UserAgent identifies this client in registry requests. It can be
// overridden at build time via linker flags.
var UserAgent = "docker-update-commander/unknown"

// Errors for digest retrieval operations.
var (
	// ErrManifestNotFound indicates the registry has no manifest for the
	// reference. Callers use it to classify images as local-only.
	ErrManifestNotFound = errors.New("manifest not found on registry")
	// errInvalidRegistryResponse indicates a HEAD response without a digest.
	errInvalidRegistryResponse = errors.New("registry responded with invalid HEAD request")
	// errDigestExtractionFailed indicates a GET response that could not be decoded.
	errDigestExtractionFailed = errors.New("failed to extract digest from response")
	// errFailedGetToken indicates a failure to obtain a registry token.
	errFailedGetToken = errors.New("failed to get token")
	// errFailedBuildManifestURL indicates a failure to construct the manifest URL.
	errFailedBuildManifestURL = errors.New("failed to build manifest URL")
	// errFailedCreateRequest indicates a failure to construct the HTTP request.
	errFailedCreateRequest = errors.New("failed to create request")
	// errFailedExecuteRequest indicates a failure to execute the HTTP request.
	errFailedExecuteRequest = errors.New("failed to execute request")
)

// manifestResponse deserializes the digest field of a GET manifest body.
type manifestResponse struct {
	Digest string `json:"digest"`
}

// FetchRemoteDigest retrieves the latest digest for an image reference
// without pulling the image. It tries a HEAD request first and falls back
// to GET when the HEAD response carries no digest header.
//
// Parameters:
//   - ctx: Context bounding the registry requests.
//   - imageName: Image reference including tag.
//   - registryAuth: Base64-encoded "username:password", may be empty.
//
// Returns:
//   - string: Normalized digest without algorithm prefix.
//   - error: ErrManifestNotFound if the repository or tag does not exist,
//     any other non-nil error for transient failures.
func FetchRemoteDigest(ctx context.Context, imageName, registryAuth string) (string, error) {
	remoteDigest, err := fetchDigest(ctx, imageName, registryAuth, http.MethodHead)
	if err != nil {
		return "", err
	}

	if remoteDigest == "" {
		logrus.WithField("image", imageName).
			Debug("HEAD request returned empty digest, falling back to GET")

		return fetchDigest(ctx, imageName, registryAuth, http.MethodGet)
	}

	return remoteDigest, nil
}

// fetchDigest retrieves an image digest using the given HTTP method.
func fetchDigest(ctx context.Context, imageName, registryAuth, method string) (string, error) {
	fields := logrus.Fields{
		"image":  imageName,
		"method": method,
	}

	registryAuth = TransformAuth(registryAuth)

	manifestURL, err := manifest.BuildManifestURL(imageName)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to build manifest URL")

		return "", fmt.Errorf("%w: %w", errFailedBuildManifestURL, err)
	}

	token, err := auth.GetToken(ctx, imageName, registryAuth)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to get token")

		return "", fmt.Errorf("%w: %w", errFailedGetToken, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, manifestURL, nil)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to create request")

		return "", fmt.Errorf("%w: %w", errFailedCreateRequest, err)
	}

	if token != "" {
		req.Header.Set("Authorization", token)
	}

	// Accept both OCI image indexes and Docker V2 manifests.
	req.Header.Set(
		"Accept",
		"application/vnd.oci.image.index.v1+json, application/vnd.docker.distribution.manifest.v2+json",
	)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := auth.Client.Do(req)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to execute request")

		return "", fmt.Errorf("%w: %w", errFailedExecuteRequest, err)
	}
	defer resp.Body.Close()

	// A 404 means the repository or tag was never pushed; the caller
	// classifies the image as local-only rather than failed.
	if resp.StatusCode == http.StatusNotFound {
		logrus.WithFields(fields).WithField("status", resp.Status).
			Debug("Registry has no manifest for reference")

		return "", fmt.Errorf("%w: %s", ErrManifestNotFound, imageName)
	}

	var remoteDigest string
	if method == http.MethodHead {
		remoteDigest, err = extractHeadDigest(resp)
	} else {
		remoteDigest, err = extractGetDigest(resp)
	}

	if err != nil {
		logrus.WithError(err).WithFields(fields).WithField("status", resp.Status).
			Debug("Failed to extract digest")

		return "", err
	}

	logrus.WithFields(fields).WithField("remote_digest", remoteDigest).
		Debug("Fetched remote digest")

	return remoteDigest, nil
}

// extractHeadDigest extracts the digest from a HEAD response's headers.
// An empty result with a nil error signals the caller to fall back to GET.
func extractHeadDigest(resp *http.Response) (string, error) {
	remoteDigest := resp.Header.Get(ContentDigestHeader)
	if remoteDigest == "" {
		if resp.StatusCode == http.StatusOK {
			// Some registries serve manifests without the digest header;
			// the GET fallback decodes it from the body instead.
			return "", nil
		}

		wwwAuthHeader := resp.Header.Get("www-authenticate")
		logrus.WithFields(logrus.Fields{
			"status":      resp.Status,
			"auth_header": wwwAuthHeader,
		}).Debug("Registry responded with invalid HEAD request")

		return "", fmt.Errorf(
			"%w: status %q, auth: %q",
			errInvalidRegistryResponse,
			resp.Status,
			wwwAuthHeader,
		)
	}

	return helpers.NormalizeDigest(remoteDigest), nil
}

// extractGetDigest extracts the digest from a GET response's body.
func extractGetDigest(resp *http.Response) (string, error) {
	var response manifestResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("%w: %w", errDigestExtractionFailed, err)
	}

	return helpers.NormalizeDigest(response.Digest), nil
}

// TransformAuth converts a base64-encoded JSON auth blob (the Docker
// client wire format) into a base64-encoded "username:password" string
// usable in HTTP Basic Authentication headers. Inputs that are already in
// basic form pass through unchanged.
func TransformAuth(registryAuth string) string {
	b, _ := base64.URLEncoding.DecodeString(registryAuth)

	credentials := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{}
	_ = json.Unmarshal(b, &credentials)

	if credentials.Username != "" && credentials.Password != "" {
		ba := fmt.Appendf(nil, "%s:%s", credentials.Username, credentials.Password)
		registryAuth = base64.StdEncoding.EncodeToString(ba)
	}

	return registryAuth
}
