package flags

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultUpdaterImage is the delegated updater image run for update jobs.
const DefaultUpdaterImage = "containrrr/watchtower"

// DefaultRegistryTimeout bounds a single registry digest lookup.
const DefaultRegistryTimeout = 30 * time.Second

// DefaultUpdaterTimeout bounds a single delegated updater run.
const DefaultUpdaterTimeout = 30 * time.Minute

// defaultCheckInterval is the default background check cadence.
const defaultCheckInterval = time.Hour

// envPrefix prefixes every environment variable read by the orchestrator.
const envPrefix = "DUC"

// Errors for logging configuration.
var (
	// errInvalidLogFormat indicates an invalid log format was specified.
	errInvalidLogFormat = errors.New("invalid log format specified")
	// errInvalidLogLevel indicates an invalid log level was specified.
	errInvalidLogLevel = errors.New("invalid log level specified")
	// errGetFlagFailed indicates a flag value could not be read.
	errGetFlagFailed = errors.New("failed to read flag value")
)

// RegisterDockerFlags adds flags used directly by the Docker API client
// to the root command.
func RegisterDockerFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "H", "", "daemon socket to connect to (DOCKER_HOST)")
	flags.StringP("api-version", "a", "", "api version to use by docker client (DOCKER_API_VERSION)")
}

// RegisterSystemFlags adds flags that control check and update behavior
// to the root command.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.String(
		"check-strategy",
		"onload",
		"when to run check passes: manual, onload, or background")

	flags.Duration(
		"check-interval",
		defaultCheckInterval,
		"interval between background check passes (minimum 5m)")

	flags.String(
		"auto-update-scope",
		"none",
		"which stale containers scheduled passes update: none, all, or selected")

	flags.StringSlice(
		"auto-update-containers",
		nil,
		"container names auto-updated when the scope is selected")

	flags.String(
		"updater-image",
		DefaultUpdaterImage,
		"delegated updater image run for update jobs")

	flags.Duration(
		"updater-timeout",
		DefaultUpdaterTimeout,
		"timeout for a single delegated updater run")

	flags.Duration(
		"registry-timeout",
		DefaultRegistryTimeout,
		"timeout for a single registry digest lookup")

	flags.String(
		"http-api-host",
		"",
		"host to bind the HTTP API to, empty for all interfaces")

	flags.String(
		"http-api-port",
		"8080",
		"port to bind the HTTP API to")

	flags.String(
		"http-api-token",
		"",
		"bearer token required by every HTTP API request")

	flags.Bool(
		"http-api-metrics",
		false,
		"expose Prometheus metrics on the HTTP API")

	flags.String(
		"log-level",
		"info",
		"log verbosity: trace, debug, info, warn, error, fatal, or panic")

	flags.String(
		"log-format",
		"auto",
		"log output format: auto, logfmt, json, or pretty")

	flags.Bool(
		"no-color",
		false,
		"disable ANSI color in log output")

	flags.BoolP(
		"debug",
		"d",
		false,
		"shorthand for --log-level debug")
}

// RegisterNotificationFlags adds notification delivery flags to the root
// command.
func RegisterNotificationFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringSlice(
		"notification-url",
		nil,
		"shoutrrr service URLs to deliver update job results to")

	flags.String(
		"notification-title",
		"Docker Update Commander",
		"title used for notifications")
}

// BindViper binds the command's flags and DUC_-prefixed environment
// variables into a dedicated viper instance. The instance is read again
// on every scheduler tick, so environment-driven settings apply without
// a restart.
//
// Parameters:
//   - rootCmd: Command whose persistent flags are bound.
//
// Returns:
//   - *viper.Viper: Bound viper instance.
//   - error: Non-nil if flag binding fails.
func BindViper(rootCmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	return v, nil
}

// EnvConfig exports the Docker connection flags into the environment
// variables the Docker client reads during initialization.
//
// Parameters:
//   - cmd: Command holding the parsed Docker flags.
//
// Returns:
//   - error: Non-nil if a flag could not be read or exported.
func EnvConfig(cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()

	host, err := flags.GetString("host")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	apiVersion, err := flags.GetString("api-version")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	if err := setEnvOptStr("DOCKER_HOST", host); err != nil {
		return err
	}

	return setEnvOptStr("DOCKER_API_VERSION", apiVersion)
}

// setEnvOptStr sets an environment variable unless the value is empty or
// already current.
func setEnvOptStr(env, value string) error {
	if value == "" || value == os.Getenv(env) {
		return nil
	}

	if err := os.Setenv(env, value); err != nil {
		return fmt.Errorf("failed to set environment variable %s: %w", env, err)
	}

	return nil
}

// ProcessFlagAliases applies shorthand flags after parsing.
func ProcessFlagAliases(flags *pflag.FlagSet) {
	if enabled, _ := flags.GetBool("debug"); enabled {
		if err := flags.Set("log-level", "debug"); err != nil {
			logrus.Errorf("Failed to set log-level flag: %v", err)
		}
	}
}

// SetupLogging configures the global logger based on log-related flags.
// It sets the log format and level, returning an error for invalid
// configurations.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errGetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified
// format and color preference.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}
