// Package registry resolves whether a newer image exists for a container
// without pulling the image. It classifies every lookup as up-to-date,
// update-available, local-only, or a transient failure, and sources
// registry credentials from the environment or the Docker config file.
//
// Subpackages:
//   - helpers: registry address parsing and digest normalization.
//   - manifest: manifest URL construction.
//   - auth: challenge handling and token retrieval.
//   - digest: manifest HEAD/GET digest retrieval.
package registry
