package main

import (
	"os"

	"github.com/pimesh/crew/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
