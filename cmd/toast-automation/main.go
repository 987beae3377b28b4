package main

import (
	"os"

	"github.com/evanramirez88/toast-automation/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
