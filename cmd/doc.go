// Package cmd contains the command-line interface definitions and
// execution logic for docker-update-commander. It wires the container
// inventory, registry resolver, status store, update dispatcher,
// scheduler, and HTTP API together based on user-specified
// configuration, and serves as the primary entry point for the CLI.
package cmd
