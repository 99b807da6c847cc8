// Package actions provides the orchestrator's core check operations:
// full inventory passes that resolve every container against its
// registry, and post-update reconciliation of dispatched targets.
package actions
