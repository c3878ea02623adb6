// Command healthcheckd runs the configured health checks on a schedule and
// serves their status over HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
