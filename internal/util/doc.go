// Package util provides small helpers shared across the orchestrator:
// random container names for one-off updater runs and human-readable
// duration formatting for scheduler logs.
package util
