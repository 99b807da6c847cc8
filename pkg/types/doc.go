// Package types defines the shared data types and interfaces used across
// docker-update-commander. It contains the container record produced by
// inventory passes, the per-container update status held by the status
// store, identity types with short-form helpers, and the client interface
// implemented by the Docker-backed container package.
package types
