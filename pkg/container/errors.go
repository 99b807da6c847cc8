package container

import (
	"errors"
)

// Errors for inventory operations in client.go.
var (
	// ErrInventoryUnavailable indicates the Docker control socket is
	// unreachable. Fatal for the current pass, not for the process.
	ErrInventoryUnavailable = errors.New("container runtime unavailable")
	// errInspectContainerFailed indicates a failure to inspect a container.
	errInspectContainerFailed = errors.New("failed to inspect container")
)

// Errors for self-identity detection in self_id.go.
var (
	// errNoValidContainerID indicates no Docker container ID was found in the cgroup data.
	errNoValidContainerID = errors.New("no valid docker container ID found in input")
	// errReadCgroupFile indicates a failure to read the cgroup file.
	errReadCgroupFile = errors.New("failed to read cgroup file")
)

// Errors for delegated updater invocations in updater.go.
var (
	// errCreateUpdaterFailed indicates the updater container could not be created.
	errCreateUpdaterFailed = errors.New("failed to create updater container")
	// errStartUpdaterFailed indicates the updater container could not be started.
	errStartUpdaterFailed = errors.New("failed to start updater container")
	// errWaitUpdaterFailed indicates waiting for the updater container failed.
	errWaitUpdaterFailed = errors.New("failed to wait for updater container")
	// errPullImageFailed indicates an image pull failed.
	errPullImageFailed = errors.New("failed to pull image")
)
