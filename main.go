package main

import (
	"os"

	"github.com/clearscope-ai/clearscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
