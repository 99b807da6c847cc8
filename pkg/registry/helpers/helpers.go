// Package helpers provides utility functions shared by the registry
// packages: registry address extraction and digest normalization.
package helpers

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// Domains for Docker Hub, the default registry.
const (
	DefaultRegistryDomain = "docker.io"
	DefaultRegistryHost   = "index.docker.io"
)

// GetRegistryAddress extracts the registry host from an image reference.
// Docker Hub's short domain is mapped to its canonical index host.
//
// Parameters:
//   - imageRef: Image reference to parse (e.g. "nginx:latest").
//
// Returns:
//   - string: Registry host serving the image.
//   - error: Non-nil if the reference cannot be parsed.
func GetRegistryAddress(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference: %w", err)
	}

	address := reference.Domain(normalizedRef)
	if address == DefaultRegistryDomain {
		address = DefaultRegistryHost
	}

	return address, nil
}

// NormalizeDigest strips the algorithm prefix from a digest string so
// digests from different sources compare consistently.
//
// Parameters:
//   - digest: Digest value, with or without "sha256:" prefix.
//
// Returns:
//   - string: Raw digest value.
func NormalizeDigest(digest string) string {
	return strings.TrimPrefix(digest, "sha256:")
}
