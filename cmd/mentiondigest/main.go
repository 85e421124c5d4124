package main

import (
	"os"

	"github.com/linkerlin/mentiondigest/cmd/mentiondigest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
