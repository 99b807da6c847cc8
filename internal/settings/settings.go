// Package settings models the orchestrator's runtime behavior settings:
// check strategy, check interval, and auto-update scope. Settings are
// re-read from configuration on every scheduler tick, so changes take
// effect without a restart.
package settings

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// MinCheckInterval is the lower bound for the background check interval.
// Shorter intervals are clamped, protecting registries from hammering.
const MinCheckInterval = 5 * time.Minute

// DefaultCheckInterval applies when no interval is configured.
const DefaultCheckInterval = time.Hour

// Errors for settings parsing.
var (
	// ErrUnknownStrategy indicates an unrecognized check strategy value.
	ErrUnknownStrategy = errors.New("unknown check strategy")
	// ErrUnknownScope indicates an unrecognized auto-update scope value.
	ErrUnknownScope = errors.New("unknown auto-update scope")
)

// CheckStrategy controls when check passes run.
type CheckStrategy int

// Check strategies.
const (
	// StrategyManual runs checks only on explicit request.
	StrategyManual CheckStrategy = iota
	// StrategyOnload runs one check at startup, then on request.
	StrategyOnload
	// StrategyBackground runs checks periodically at the check interval.
	StrategyBackground
)

// String returns the configuration name of the strategy.
func (s CheckStrategy) String() string {
	switch s {
	case StrategyManual:
		return "manual"
	case StrategyOnload:
		return "onload"
	case StrategyBackground:
		return "background"
	default:
		return "unknown"
	}
}

// ParseCheckStrategy parses a configuration value into a CheckStrategy.
// The legacy value "startup" is accepted as an alias for "onload".
func ParseCheckStrategy(value string) (CheckStrategy, error) {
	switch value {
	case "manual":
		return StrategyManual, nil
	case "onload", "startup":
		return StrategyOnload, nil
	case "background":
		return StrategyBackground, nil
	default:
		return StrategyManual, fmt.Errorf("%w: %q", ErrUnknownStrategy, value)
	}
}

// AutoUpdateScope controls which stale containers scheduled passes update.
type AutoUpdateScope int

// Auto-update scopes.
const (
	// ScopeNone disables automatic updates; checks only observe.
	ScopeNone AutoUpdateScope = iota
	// ScopeAll auto-updates every stale container.
	ScopeAll
	// ScopeSelected auto-updates only the configured containers.
	ScopeSelected
)

// String returns the configuration name of the scope.
func (s AutoUpdateScope) String() string {
	switch s {
	case ScopeNone:
		return "none"
	case ScopeAll:
		return "all"
	case ScopeSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// ParseAutoUpdateScope parses a configuration value into an AutoUpdateScope.
func ParseAutoUpdateScope(value string) (AutoUpdateScope, error) {
	switch value {
	case "none", "":
		return ScopeNone, nil
	case "all":
		return ScopeAll, nil
	case "selected":
		return ScopeSelected, nil
	default:
		return ScopeNone, fmt.Errorf("%w: %q", ErrUnknownScope, value)
	}
}

// Settings is one consistent snapshot of the runtime behavior settings.
type Settings struct {
	Strategy             CheckStrategy
	CheckInterval        time.Duration
	AutoUpdateScope      AutoUpdateScope
	AutoUpdateContainers []string
}

// Provider yields the current settings snapshot.
type Provider interface {
	Current() Settings
}

// ViperProvider reads settings from a viper instance on every call, so
// configuration reloads are picked up between scheduler ticks.
type ViperProvider struct {
	viper *viper.Viper
}

// NewViperProvider creates a Provider over the given viper instance.
func NewViperProvider(v *viper.Viper) *ViperProvider {
	return &ViperProvider{viper: v}
}

// Current reads and validates the current settings. Invalid values fall
// back to safe defaults with a warning rather than failing the tick.
//
// Returns:
//   - Settings: Validated settings snapshot.
func (p *ViperProvider) Current() Settings {
	strategy, err := ParseCheckStrategy(p.viper.GetString("check-strategy"))
	if err != nil {
		logrus.WithError(err).Warn("Invalid check strategy, falling back to manual")
	}

	scope, err := ParseAutoUpdateScope(p.viper.GetString("auto-update-scope"))
	if err != nil {
		logrus.WithError(err).Warn("Invalid auto-update scope, disabling auto-updates")
	}

	interval := p.viper.GetDuration("check-interval")
	if interval <= 0 {
		interval = DefaultCheckInterval
	} else if interval < MinCheckInterval {
		logrus.WithFields(logrus.Fields{
			"configured": interval,
			"minimum":    MinCheckInterval,
		}).Warn("Check interval below minimum, clamping")

		interval = MinCheckInterval
	}

	return Settings{
		Strategy:             strategy,
		CheckInterval:        interval,
		AutoUpdateScope:      scope,
		AutoUpdateContainers: p.viper.GetStringSlice("auto-update-containers"),
	}
}
