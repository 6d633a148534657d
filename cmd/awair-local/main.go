package main

import (
	"os"

	"github.com/monorkin/awair-local/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
