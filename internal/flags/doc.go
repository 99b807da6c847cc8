// Package flags manages command-line flags and environment variables for
// the orchestrator's configuration. Every flag can be set through a
// DUC_-prefixed environment variable, and the behavior settings are
// additionally exposed through viper so they can be re-read at runtime.
package flags
