package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/docker/api/types/image"
	"github.com/sirupsen/logrus"
)

// errFailedGetAuth indicates a failure to retrieve authentication credentials for an image.
var errFailedGetAuth = errors.New("failed to get authentication credentials")

// GetPullOptions creates a struct with all options needed for pulling images from a registry.
// It retrieves encoded authentication credentials for the specified image and configures
// pull options, including a privilege function for handling authentication retries.
func GetPullOptions(imageName string) (image.PullOptions, error) {
	fields := logrus.Fields{
		"image": imageName,
	}

	logrus.WithFields(fields).Debug("Retrieving pull options")

	auth, err := EncodedAuth(imageName)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to get authentication credentials")

		return image.PullOptions{}, fmt.Errorf("%w: %w", errFailedGetAuth, err)
	}

	if auth == "" {
		logrus.WithFields(fields).Debug("No authentication credentials found")

		return image.PullOptions{}, nil
	}

	return image.PullOptions{
		RegistryAuth:  auth,
		PrivilegeFunc: DefaultAuthHandler,
	}, nil
}

// DefaultAuthHandler is a privilege function called when initial authentication fails.
// It logs the rejection and returns an empty string to retry the request without credentials,
// as retrying with the same rejected credentials is unlikely to succeed.
func DefaultAuthHandler(_ context.Context) (string, error) {
	logrus.Debug("Authentication rejected, retrying without credentials")

	return "", nil
}
