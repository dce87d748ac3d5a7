package main

import (
	"os"

	"github.com/spigell/jobrank/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
