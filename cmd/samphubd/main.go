package main

import (
	"os"

	"github.com/lvalerom/samphub/cmd/samphubd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
