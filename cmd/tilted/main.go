package main

import (
	"os"

	"github.com/otrenterprises/tiltedtrades/cmd/tilted/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
