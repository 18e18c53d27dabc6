package main

import (
	"os"

	"github.com/kilianp07/simbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
