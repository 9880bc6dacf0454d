package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/stackmesh/appsyncctl/internal/compiler"
	"github.com/stackmesh/appsyncctl/internal/manifest"
	"github.com/stackmesh/appsyncctl/internal/policy"
	"github.com/stackmesh/appsyncctl/internal/provision"
	"github.com/urfave/cli/v2"
)

// CompileCommand returns the compile command for validating a manifest
func CompileCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "compile",
		Usage: "Compile and validate an API manifest without touching AWS",
		Description: `Loads the manifest, validates every cross-reference and the auth
configuration, and prints the resolved graph.

All independent problems are reported in one pass: every dangling
datasource or function reference, every missing auth payload, every empty
pipeline. Fix them all in one edit, then re-run.

Examples:
  # Validate a manifest
  appsyncctl compile -f api.yml

  # Print the resolved graph as JSON
  appsyncctl compile -f api.yml --json

  # Also evaluate the deployment policy for prd
  appsyncctl compile -f api.yml --env prd --policy

  # Also verify OPENID_CONNECT issuers are reachable
  appsyncctl compile -f api.yml --probe-oidc`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "manifest",
				Aliases:  []string{"f"},
				Usage:    "Path to the API manifest YAML",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Deploy environment (dev, stg, or prd) used by the policy gate",
				Value:   "dev",
				EnvVars: []string{"ENV"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the resolved graph as JSON",
			},
			&cli.BoolFlag{
				Name:  "policy",
				Usage: "Evaluate the deployment policy against the resolved graph",
			},
			&cli.BoolFlag{
				Name:  "probe-oidc",
				Usage: "Verify every OPENID_CONNECT issuer's discovery document is reachable",
			},
		},
		Action: func(c *cli.Context) error {
			return compileAction(c, logger)
		},
	}
}

func compileAction(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context

	graph, m, err := compileManifest(c.String("manifest"), logger)
	if err != nil {
		return err
	}

	if c.Bool("policy") {
		validator, err := policy.NewValidator()
		if err != nil {
			return err
		}
		result, err := validator.ValidateGraph(ctx, graph, c.String("env"))
		if err != nil {
			return err
		}
		if !result.Allowed {
			for _, violation := range result.Violations {
				logger.Error().Str("manifest", m.Name).Msg(violation)
			}
			return fmt.Errorf("policy rejected the configuration with %d violation(s)", len(result.Violations))
		}
		logger.Info().Msg("Policy check passed")
	}

	if c.Bool("probe-oidc") {
		if err := provision.ProbeOIDCIssuers(ctx, graph.Auth); err != nil {
			return err
		}
		logger.Info().Msg("OIDC issuers reachable")
	}

	if c.Bool("json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(graph)
	}

	logger.Info().
		Str("api", m.Name).
		Int("datasources", len(graph.Datasources)).
		Int("functions", len(graph.Functions)).
		Int("unit_resolvers", len(graph.UnitResolvers)).
		Int("pipeline_resolvers", len(graph.PipelineResolvers)).
		Int("auth_mechanisms", 1+len(graph.Auth.Additional)).
		Msg("Manifest compiled")
	return nil
}

// compileManifest loads the manifest and compiles it, logging every
// accumulated validation error before failing.
func compileManifest(path string, logger *zerolog.Logger) (*compiler.Graph, *manifest.Manifest, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, nil, err
	}

	graph, err := compiler.Compile(m.CompilerInput())
	if err != nil {
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			for _, problem := range compileErr.Errors {
				logger.Error().Str("manifest", m.Name).Msg(problem.Error())
			}
			return nil, nil, fmt.Errorf("manifest failed to compile with %d error(s)", len(compileErr.Errors))
		}
		return nil, nil, err
	}
	return graph, m, nil
}
