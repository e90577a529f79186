// Package main provides the converse API server.
package main

import (
	"context"
	"os"

	"github.com/dukex/converse/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("converse-api")

	command := &cli.Command{
		Name:                  "converse-api",
		Usage:                 "Route conversations to skills and drive their workflows",
		EnableShellCompletion: true,
		DefaultCommand:        "run",
		Commands: []*cli.Command{
			RunAPICommand(),
			ValidateCommand(),
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
