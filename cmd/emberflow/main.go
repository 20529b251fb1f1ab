// Package main provides the emberflow command line interface.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/emberflow/emberflow/pkg/log"
)

func main() {
	logger := log.WithModule("cli")

	root := &cli.Command{
		Name:                  "emberflow",
		Usage:                 "Browser automation engine for multi-account operation",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewRunCommand(),
			NewAPICommand(),
			NewSchedulerCommand(),
			NewValidateCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
