package main

import (
	"os"

	"github.com/rillwm/rill/cmd/rill/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
