// Package status holds the process-wide update status map. The store is
// the single writer of per-container update statuses: inventory and
// resolver passes contribute facts, but every mutation is funneled
// through the store to keep concurrent readers (the HTTP API) and writers
// (scheduler ticks, user-triggered checks, the dispatcher) consistent.
package status
