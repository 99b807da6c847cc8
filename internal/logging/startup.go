// Package logging provides startup information logging: version, Docker
// API version, check strategy, and HTTP API endpoints.
package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/internal/settings"
	"github.com/boingbasti/docker-update-commander/internal/util"
	"github.com/boingbasti/docker-update-commander/pkg/types"
)

// WriteStartupMessage logs the orchestrator's initial state: version,
// negotiated Docker API version, self identity, check configuration, and
// the HTTP API address.
//
// Parameters:
//   - client: Runtime client, used for API version and self identity.
//   - current: Behavior settings active at startup.
//   - apiAddr: Address the HTTP API listens on, empty when disabled.
//   - version: Orchestrator version string.
func WriteStartupMessage(
	client types.Client,
	current settings.Settings,
	apiAddr string,
	version string,
) {
	var apiVersion string
	if client != nil {
		apiVersion = client.APIVersion()
	}

	logrus.Info("Docker Update Commander ", version, " using Docker API v", apiVersion)

	if client != nil {
		if selfID := client.SelfID(); selfID != "" {
			logrus.WithField("container_id", selfID.ShortID()).
				Info("Running containerized, own container is protected from updates")
		} else {
			logrus.Info("Not running inside a container")
		}
	}

	switch current.Strategy {
	case settings.StrategyBackground:
		logrus.WithFields(logrus.Fields{
			"interval": util.FormatDuration(current.CheckInterval),
			"scope":    current.AutoUpdateScope.String(),
		}).Info("Scheduling background checks")
	case settings.StrategyOnload:
		logrus.Info("Running a check pass on startup, then on request only")
	case settings.StrategyManual:
		logrus.Info("Checks run on request only")
	}

	if apiAddr != "" {
		logrus.WithField("addr", apiAddr).Info("HTTP API enabled")
	}
}
