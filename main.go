package main

import (
	"os"

	"github.com/shulebot/shulebot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
