package main

import (
	"os"

	"github.com/planwerk/mrp/pkg/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
