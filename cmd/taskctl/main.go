package main

import (
	"os"

	"finitefield.org/taskboard/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
