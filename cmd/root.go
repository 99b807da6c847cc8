package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/boingbasti/docker-update-commander/internal/actions"
	"github.com/boingbasti/docker-update-commander/internal/flags"
	"github.com/boingbasti/docker-update-commander/internal/logging"
	"github.com/boingbasti/docker-update-commander/internal/scheduling"
	"github.com/boingbasti/docker-update-commander/internal/settings"
	"github.com/boingbasti/docker-update-commander/pkg/api"
	checkAPI "github.com/boingbasti/docker-update-commander/pkg/api/check"
	metricsAPI "github.com/boingbasti/docker-update-commander/pkg/api/metrics"
	statusAPI "github.com/boingbasti/docker-update-commander/pkg/api/status"
	stopcheckAPI "github.com/boingbasti/docker-update-commander/pkg/api/stopcheck"
	updateAPI "github.com/boingbasti/docker-update-commander/pkg/api/update"
	"github.com/boingbasti/docker-update-commander/pkg/container"
	"github.com/boingbasti/docker-update-commander/pkg/metrics"
	"github.com/boingbasti/docker-update-commander/pkg/notifications"
	"github.com/boingbasti/docker-update-commander/pkg/registry"
	"github.com/boingbasti/docker-update-commander/pkg/status"
	"github.com/boingbasti/docker-update-commander/pkg/types"
	"github.com/boingbasti/docker-update-commander/pkg/updater"
)

// version is the orchestrator version, overridden at build time via
// -ldflags "-X github.com/boingbasti/docker-update-commander/cmd.version=...".
var version = "dev"

// client is the Docker client instance, initialized during preRun.
var client types.Client

// runtimeViper holds the flag and environment bindings re-read by the
// scheduler on every tick.
var runtimeViper *viper.Viper

// notifier delivers update job results; nil when no URLs are configured.
var notifier *notifications.Notifier

var rootCmd = newRootCommand()

// newRootCommand creates the root cobra command.
func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "docker-update-commander",
		Short: "Watches container images for updates and delegates their replacement",
		Long: `docker-update-commander tracks the registry digests of every running
container on a Docker host, reports which ones have updates available,
and replaces stale containers by dispatching a one-off delegated updater
container. The orchestrator's own container is never updated.`,
		PreRunE:       preRun,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func init() {
	flags.RegisterDockerFlags(rootCmd)
	flags.RegisterSystemFlags(rootCmd)
	flags.RegisterNotificationFlags(rootCmd)
}

// Execute runs the root command and exits on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Command failed")
	}
}

// preRun configures logging, environment, and shared instances before
// the main loop starts.
func preRun(cmd *cobra.Command, _ []string) error {
	persistentFlags := cmd.PersistentFlags()

	flags.ProcessFlagAliases(persistentFlags)

	if err := flags.SetupLogging(persistentFlags); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if err := flags.EnvConfig(cmd); err != nil {
		return fmt.Errorf("failed to apply Docker environment config: %w", err)
	}

	v, err := flags.BindViper(cmd)
	if err != nil {
		return err
	}

	runtimeViper = v

	notifier, err = notifications.NewNotifier(
		runtimeViper.GetStringSlice("notification-url"),
		runtimeViper.GetString("notification-title"),
	)
	if err != nil {
		return err
	}

	client = container.NewClient(container.ClientOptions{
		UpdaterImage: runtimeViper.GetString("updater-image"),
	})

	return nil
}

// run wires the components together and blocks until shutdown.
func run(_ *cobra.Command, _ []string) error {
	store := status.NewStore()
	resolver := registry.NewResolver(runtimeViper.GetDuration("registry-timeout"))
	checker := actions.NewChecker(client, store, resolver)

	dispatcher := updater.NewDispatcher(
		client,
		store,
		checker.Reconcile,
		runtimeViper.GetString("updater-image"),
	)
	dispatcher.RunTimeout = runtimeViper.GetDuration("updater-timeout")

	metricsHandler := metrics.Default()
	dispatcher.OnComplete = func(job updater.Job) {
		metricsHandler.RegisterJob(&metrics.JobMetric{
			Targets: len(job.Targets),
			Failed:  job.State == updater.JobFailed,
		})
		notifier.Send(jobMessage(job))
	}

	provider := settings.NewViperProvider(runtimeViper)
	scheduler := scheduling.NewScheduler(checker, dispatcher, provider, metricsHandler)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	apiAddr, err := startAPI(ctx, store, checker, dispatcher)
	if err != nil {
		return err
	}

	logging.WriteStartupMessage(client, provider.Current(), apiAddr, version)

	return scheduler.Run(ctx)
}

// startAPI configures and starts the HTTP API when a token is set.
//
// Returns the listen address, empty when the API is disabled.
func startAPI(
	ctx context.Context,
	store *status.Store,
	checker *actions.Checker,
	dispatcher *updater.Dispatcher,
) (string, error) {
	token := runtimeViper.GetString("http-api-token")
	if token == "" {
		logrus.Info("No API token configured, HTTP API disabled")

		return "", nil
	}

	apiAddr := runtimeViper.GetString("http-api-host") + ":" +
		runtimeViper.GetString("http-api-port")

	httpAPI := api.New(token, apiAddr)

	statusHandler := statusAPI.New(store, dispatcher)
	httpAPI.RegisterFunc(statusHandler.Path, httpAPI.RequireToken(statusHandler.Handle))

	checkHandler := checkAPI.New(checker)
	httpAPI.RegisterFunc(checkHandler.Path, httpAPI.RequireToken(checkHandler.Handle))

	stopCheckHandler := stopcheckAPI.New(checker)
	httpAPI.RegisterFunc(stopCheckHandler.Path, httpAPI.RequireToken(stopCheckHandler.Handle))

	updateHandler := updateAPI.New(dispatcher)
	httpAPI.RegisterFunc(updateHandler.Path, httpAPI.RequireToken(updateHandler.Handle))

	if runtimeViper.GetBool("http-api-metrics") {
		metricsHandler := metricsAPI.New()
		httpAPI.RegisterFunc(metricsHandler.Path, httpAPI.RequireToken(metricsHandler.Handle))
	}

	if err := httpAPI.Start(ctx, false); err != nil {
		return "", fmt.Errorf("failed to start HTTP API: %w", err)
	}

	return apiAddr, nil
}

// jobMessage renders an update job result for notification delivery.
func jobMessage(job updater.Job) string {
	return fmt.Sprintf(
		"Update job %s %s for %d container(s): %s",
		job.ID,
		job.State.String(),
		len(job.Targets),
		strings.Join(job.Targets, ", "),
	)
}
