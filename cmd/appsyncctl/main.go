package main

import (
	"context"
	"os"

	"github.com/stackmesh/appsyncctl/cmd/appsyncctl/commands"
	"github.com/stackmesh/appsyncctl/internal/di"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := di.ProvideLogger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "appsyncctl",
		Usage: "AppSync API configuration compiler and provisioner",
		Description: `Compiles a declarative API manifest into a validated configuration graph
and applies it to AWS AppSync.

This tool provides commands for:
  - Compiling a manifest and reporting every validation error in one pass
  - Checking a compiled graph against the deployment policy
  - Applying the resolved graph: API, schema, datasources, functions,
    resolvers, logging, and custom domain`,
		Commands: []*cli.Command{
			commands.CompileCommand(&logger),
			commands.ApplyCommand(&logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
