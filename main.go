package main

import (
	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/cmd"
)

// init configures the initial logging level.
//
// It sets logrus to InfoLevel by default, ensuring basic operational
// logs are visible unless overridden by flags like --debug or
// --log-level in cmd.
func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

// main delegates execution to the cmd package, which handles CLI setup,
// flag parsing, and the orchestration loop.
func main() {
	cmd.Execute()
}
