package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
	"github.com/stackmesh/appsyncctl/internal/compiler"
	"github.com/stackmesh/appsyncctl/internal/di"
	"github.com/stackmesh/appsyncctl/internal/manifest"
	"github.com/stackmesh/appsyncctl/internal/policy"
	"github.com/stackmesh/appsyncctl/internal/provision"
	"github.com/stackmesh/appsyncctl/internal/services"
	"github.com/urfave/cli/v2"
)

// ApplyCommand returns the apply command for provisioning a compiled manifest
func ApplyCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "Compile a manifest and provision it to AWS AppSync",
		Description: `Compiles the manifest, evaluates the deployment policy, and applies the
resolved graph: the API with its composed auth configuration, the schema,
datasources, functions, resolvers, logging, and custom domain.

Deploy settings (role ARNs, certificate ARN, custom domain) come from
Parameter Store under /{env}/appsyncctl/, or from environment variables
when DISABLE_SSM=true.

Examples:
  # Show what would be provisioned (default is dry-run)
  appsyncctl apply -f api.yml --env dev

  # Actually provision
  appsyncctl apply -f api.yml --env dev --execute`,
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
				Usage:   "Deploy environment (dev, stg, or prd)",
				Value:   "dev",
				EnvVars: []string{"ENV"},
			},
			&cli.BoolFlag{
				Name:    "execute",
				Aliases: []string{"x"},
				Usage:   "Actually provision resources (default is dry-run)",
			},
			&cli.BoolFlag{
				Name:  "skip-policy",
				Usage: "Skip the deployment policy gate",
			},
		},
		Action: func(c *cli.Context) error {
			return applyAction(c, logger)
		},
	}
}

func applyAction(c *cli.Context, logger *zerolog.Logger) error {
	env := c.String("env")
	execute := c.Bool("execute")

	graph, m, err := compileManifest(c.String("manifest"), logger)
	if err != nil {
		return err
	}

	container, err := di.New(env, di.WithDryRun(!execute))
	if err != nil {
		return err
	}

	return container.Invoke(func(
		ctx context.Context,
		validator *policy.Validator,
		provisioner provision.Provisioner,
		deployConfig *services.Config,
		iamService *services.IAMService,
	) error {
		if !c.Bool("skip-policy") {
			result, err := validator.ValidateGraph(ctx, graph, env)
			if err != nil {
				return err
			}
			if !result.Allowed {
				for _, violation := range result.Violations {
					logger.Error().Str("api", m.Name).Msg(violation)
				}
				return fmt.Errorf("policy rejected the configuration with %d violation(s)", len(result.Violations))
			}
		}

		settings, err := buildSettings(ctx, m, env, deployConfig, iamService, execute)
		if err != nil {
			return err
		}

		if !execute {
			logger.Info().Str("api", m.Name).Msg("Dry run - resources that would be provisioned:")
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(plan(graph, settings))
		}

		result, err := provisioner.Apply(ctx, graph, settings)
		if err != nil {
			return err
		}

		logger.Info().
			Str("api_id", result.APIID).
			Str("api_arn", result.APIARN).
			Str("run_id", settings.RunID).
			Msg("Apply complete")
		for key, uri := range result.URIs {
			logger.Info().Str(key, uri).Msg("Endpoint")
		}
		return nil
	})
}

// buildSettings merges the manifest's logging/domain sections with the
// deploy-time configuration. Role ARNs left empty in both places are
// created on demand via IAM when executing.
func buildSettings(ctx context.Context, m *manifest.Manifest, env string, deployConfig *services.Config, iamService *services.IAMService, execute bool) (provision.Settings, error) {
	settings := provision.Settings{
		APIName:           m.Name,
		Env:               env,
		Schema:            m.Schema,
		DatasourceRoleARN: deployConfig.DatasourceRoleARN,
		RunID:             ksuid.New().String(),
	}

	if m.Logging != nil {
		roleARN := m.Logging.ServiceRoleARN
		if roleARN == "" {
			roleARN = deployConfig.LoggingRoleARN
		}
		if roleARN == "" && execute {
			created, err := iamService.EnsureLoggingRole(ctx, m.Name)
			if err != nil {
				return provision.Settings{}, err
			}
			roleARN = created
		}
		settings.Logging = &provision.LoggingSettings{
			FieldLogLevel:         m.Logging.FieldLogLevel,
			ExcludeVerboseContent: m.Logging.ExcludeVerboseContent,
			ServiceRoleARN:        roleARN,
		}
	}

	if m.Domain != nil {
		domainName := m.Domain.DomainName
		if domainName == "" {
			domainName = deployConfig.CustomDomain
		}
		certificateARN := m.Domain.CertificateARN
		if certificateARN == "" {
			certificateARN = deployConfig.CertificateARN
		}
		settings.Domain = &provision.DomainSettings{
			DomainName:     domainName,
			CertificateARN: certificateARN,
		}
	}

	return settings, nil
}

// applyPlan is the dry-run summary of one apply.
type applyPlan struct {
	API               string                     `json:"api"`
	Env               string                     `json:"env"`
	PrimaryAuth       compiler.AuthType          `json:"primary_auth"`
	AdditionalAuth    []compiler.AuthType        `json:"additional_auth,omitempty"`
	Datasources       []string                   `json:"datasources"`
	Functions         []string                   `json:"functions"`
	UnitResolvers     []string                   `json:"unit_resolvers"`
	PipelineResolvers map[string][]string        `json:"pipeline_resolvers"`
	Logging           *provision.LoggingSettings `json:"logging,omitempty"`
	Domain            *provision.DomainSettings  `json:"domain,omitempty"`
}

func plan(graph *compiler.Graph, settings provision.Settings) applyPlan {
	p := applyPlan{
		API:               settings.APIName,
		Env:               settings.Env,
		Logging:           settings.Logging,
		Domain:            settings.Domain,
		PipelineResolvers: make(map[string][]string, len(graph.PipelineResolvers)),
	}
	if graph.Auth.Primary != nil {
		p.PrimaryAuth = graph.Auth.Primary.Type
	}
	for _, block := range graph.Auth.Additional {
		p.AdditionalAuth = append(p.AdditionalAuth, block.Type)
	}
	for _, ds := range graph.Datasources {
		p.Datasources = append(p.Datasources, ds.Name)
	}
	for _, fn := range graph.Functions {
		p.Functions = append(p.Functions, fn.Key)
	}
	for _, rs := range graph.UnitResolvers {
		p.UnitResolvers = append(p.UnitResolvers, rs.Key)
	}
	for _, rs := range graph.PipelineResolvers {
		keys := make([]string, 0, len(rs.Functions))
		for _, fn := range rs.Functions {
			keys = append(keys, fn.Key)
		}
		p.PipelineResolvers[rs.Key] = keys
	}
	return p
}
