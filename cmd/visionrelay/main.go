package main

import (
	"os"

	"github.com/visionrelay/visionrelay/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
