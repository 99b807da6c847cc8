package registry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	dockerCliConfig "github.com/docker/cli/cli/config"
	dockerConfigConfigfile "github.com/docker/cli/cli/config/configfile"
	dockerConfigCredentials "github.com/docker/cli/cli/config/credentials"
	dockerConfigTypes "github.com/docker/cli/cli/config/types"

	"github.com/boingbasti/docker-update-commander/pkg/registry/helpers"
)

// Errors for credential retrieval operations.
var (
	// errUnsetRegAuthVars indicates REPO_USER and REPO_PASS are not set.
	errUnsetRegAuthVars = errors.New(
		"registry auth environment variables (REPO_USER, REPO_PASS) not set",
	)
	// errFailedGetRegistryAddress indicates the registry host could not be derived.
	errFailedGetRegistryAddress = errors.New("failed to get registry address")
	// errFailedLoadDockerConfig indicates the Docker config file could not be loaded.
	errFailedLoadDockerConfig = errors.New("failed to load Docker config")
	// errFailedMarshalAuthConfig indicates the auth config could not be serialized.
	errFailedMarshalAuthConfig = errors.New("failed to marshal auth config to JSON")
)

// EncodedAuth retrieves encoded authentication credentials for an image
// reference, checking environment variables first and falling back to the
// Docker config file. An empty string with a nil error means the registry
// is accessed anonymously.
func EncodedAuth(ref string) (string, error) {
	fields := logrus.Fields{
		"image_ref": ref,
	}

	auth, err := EncodedEnvAuth()
	if err != nil {
		logrus.WithFields(fields).
			Debug("Environment auth not available, trying config file")

		auth, err = EncodedConfigAuth(ref)
	}

	return auth, err
}

// EncodedEnvAuth encodes the REPO_USER and REPO_PASS environment
// variables into a base64 auth string if both are present.
func EncodedEnvAuth() (string, error) {
	username := os.Getenv("REPO_USER")
	password := os.Getenv("REPO_PASS")

	if username == "" || password == "" {
		return "", errUnsetRegAuthVars
	}

	logrus.WithField("username", username).
		Debug("Loaded auth credentials from environment")

	return EncodeAuth(dockerConfigTypes.AuthConfig{
		Username: username,
		Password: password,
	})
}

// EncodedConfigAuth retrieves credentials for the image's registry from
// the Docker config file. The config must be reachable from this process,
// typically via a mounted DOCKER_CONFIG directory.
func EncodedConfigAuth(imageRef string) (string, error) {
	fields := logrus.Fields{
		"image_ref": imageRef,
	}

	server, err := helpers.GetRegistryAddress(imageRef)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to get registry address")

		return "", fmt.Errorf("%w: %w", errFailedGetRegistryAddress, err)
	}

	configDir := os.Getenv("DOCKER_CONFIG")
	if configDir == "" {
		configDir = "/"
	}

	configFile, err := dockerCliConfig.Load(configDir)
	if err != nil {
		logrus.WithError(err).WithFields(fields).
			WithField("config_dir", configDir).
			Debug("Failed to load Docker config")

		return "", fmt.Errorf("%w: %w", errFailedLoadDockerConfig, err)
	}

	credStore := CredentialsStore(*configFile)

	auth, _ := credStore.Get(server)
	if auth == (dockerConfigTypes.AuthConfig{}) {
		logrus.WithFields(fields).WithFields(logrus.Fields{
			"server":      server,
			"config_file": configFile.Filename,
		}).Debug("No credentials found in config")

		return "", nil
	}

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"username": auth.Username,
		"server":   server,
	}).Debug("Loaded auth credentials from config")

	return EncodeAuth(auth)
}

// CredentialsStore returns the credentials store configured in the Docker
// config file, native when a credentials helper is set, file-based
// otherwise.
func CredentialsStore(configFile dockerConfigConfigfile.ConfigFile) dockerConfigCredentials.Store {
	if configFile.CredentialsStore != "" {
		return dockerConfigCredentials.NewNativeStore(&configFile, configFile.CredentialsStore)
	}

	return dockerConfigCredentials.NewFileStore(&configFile)
}

// EncodeAuth base64-encodes an AuthConfig for transmission over HTTP.
func EncodeAuth(authConfig dockerConfigTypes.AuthConfig) (string, error) {
	buf, err := json.Marshal(authConfig)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedMarshalAuthConfig, err)
	}

	return base64.URLEncoding.EncodeToString(buf), nil
}
