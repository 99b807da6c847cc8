// Package manifest constructs the URLs used to query container image
// manifests from their registries without pulling image content.
package manifest

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/distribution/reference"
	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/pkg/registry/helpers"
)

// Errors for manifest URL construction.
var (
	// errMissingTag indicates the parsed image reference lacks a tag.
	errMissingTag = errors.New("parsed container image reference has no tag")
	// errFailedParseImageName indicates a failure to parse the image name.
	errFailedParseImageName = errors.New("failed to parse image name")
)

// BuildManifestURL constructs the manifest URL for an image reference.
//
// Parameters:
//   - imageName: Image reference including tag (e.g. "nginx:latest").
//
// Returns:
//   - string: Manifest URL (e.g. "https://index.docker.io/v2/library/nginx/manifests/latest").
//   - error: Non-nil if parsing fails or the reference lacks a tag.
func BuildManifestURL(imageName string) (string, error) {
	normalizedRef, err := reference.ParseDockerRef(imageName)
	if err != nil {
		logrus.WithError(err).
			WithField("image", imageName).
			Debug("Failed to parse image name")

		return "", fmt.Errorf("%w: %w", errFailedParseImageName, err)
	}

	taggedRef, isTagged := normalizedRef.(reference.NamedTagged)
	if !isTagged {
		logrus.WithField("ref", normalizedRef.String()).
			Debug("Missing tag in image reference")

		return "", fmt.Errorf("%w: %s", errMissingTag, normalizedRef.String())
	}

	host, _ := helpers.GetRegistryAddress(taggedRef.Name())

	manifestURL := url.URL{
		Scheme: "https",
		Host:   host,
		Path:   fmt.Sprintf("/v2/%s/manifests/%s", reference.Path(taggedRef), taggedRef.Tag()),
	}

	logrus.WithFields(logrus.Fields{
		"image": imageName,
		"url":   manifestURL.String(),
	}).Debug("Built manifest URL")

	return manifestURL.String(), nil
}
