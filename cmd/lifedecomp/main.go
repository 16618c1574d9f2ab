package main

import (
	"os"

	"github.com/demostat/lifedecomp/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
