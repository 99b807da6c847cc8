package flags

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	RegisterDockerFlags(cmd)
	RegisterSystemFlags(cmd)
	RegisterNotificationFlags(cmd)

	return cmd
}

func TestFlagDefaults(t *testing.T) {
	t.Parallel()

	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	flags := cmd.PersistentFlags()

	strategy, err := flags.GetString("check-strategy")
	require.NoError(t, err)
	assert.Equal(t, "onload", strategy)

	interval, err := flags.GetDuration("check-interval")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, interval)

	image, err := flags.GetString("updater-image")
	require.NoError(t, err)
	assert.Equal(t, DefaultUpdaterImage, image)

	port, err := flags.GetString("http-api-port")
	require.NoError(t, err)
	assert.Equal(t, "8080", port)
}

func TestBindViperReadsFlags(t *testing.T) {
	t.Parallel()

	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--check-strategy", "background",
		"--auto-update-scope", "selected",
		"--auto-update-containers", "web,db",
	}))

	v, err := BindViper(cmd)
	require.NoError(t, err)

	assert.Equal(t, "background", v.GetString("check-strategy"))
	assert.Equal(t, "selected", v.GetString("auto-update-scope"))
	assert.Equal(t, []string{"web", "db"}, v.GetStringSlice("auto-update-containers"))
}

func TestBindViperReadsEnvironment(t *testing.T) {
	t.Setenv("DUC_CHECK_STRATEGY", "manual")

	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags(nil))

	v, err := BindViper(cmd)
	require.NoError(t, err)

	assert.Equal(t, "manual", v.GetString("check-strategy"))
}

func TestProcessFlagAliases(t *testing.T) {
	t.Parallel()

	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--debug"}))

	ProcessFlagAliases(cmd.PersistentFlags())

	level, err := cmd.PersistentFlags().GetString("log-level")
	require.NoError(t, err)
	assert.Equal(t, "debug", level)
}

func TestSetupLogging(t *testing.T) {
	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "warn", "--log-format", "json"}))
	require.NoError(t, SetupLogging(cmd.PersistentFlags()))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	cmd = newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--log-format", "bogus"}))
	require.ErrorIs(t, SetupLogging(cmd.PersistentFlags()), errInvalidLogFormat)

	cmd = newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "bogus"}))
	require.ErrorIs(t, SetupLogging(cmd.PersistentFlags()), errInvalidLogLevel)
}

func TestEnvConfig(t *testing.T) {
	t.Setenv("DOCKER_HOST", "")
	t.Setenv("DOCKER_API_VERSION", "")

	cmd := newTestCommand()
	require.NoError(t, cmd.ParseFlags([]string{
		"--host", "tcp://127.0.0.1:2375",
		"--api-version", "1.44",
	}))

	require.NoError(t, EnvConfig(cmd))
	assert.Equal(t, "tcp://127.0.0.1:2375", getEnv(t, "DOCKER_HOST"))
	assert.Equal(t, "1.44", getEnv(t, "DOCKER_API_VERSION"))
}

func getEnv(t *testing.T, key string) string {
	t.Helper()

	value, ok := os.LookupEnv(key)
	require.True(t, ok, "expected %s to be set", key)

	return value
}
