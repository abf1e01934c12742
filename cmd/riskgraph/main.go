package main

import (
	"os"

	"github.com/moolen/riskgraph/cmd/riskgraph/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
