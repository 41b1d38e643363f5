package main

import (
	"os"

	"github.com/futig/context-rag/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
