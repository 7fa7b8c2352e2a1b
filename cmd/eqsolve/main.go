package main

import (
	"os"

	"github.com/inkmath/equation-solver/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
