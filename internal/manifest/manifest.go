// Package manifest loads the declarative YAML description of one AppSync
// API and converts it into the compiler's input shape. The GraphQL schema
// is loaded as an opaque string; the manifest layer never parses SDL.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/stackmesh/appsyncctl/internal/compiler"
	"gopkg.in/yaml.v3"
)

// Manifest is the top-level declarative API definition.
type Manifest struct {
	Name       string `yaml:"name"`
	SchemaFile string `yaml:"schema"`

	Auth        AuthSection  `yaml:"auth"`
	Datasources []Datasource `yaml:"datasources"`

	Functions         map[string]Function         `yaml:"functions"`
	Resolvers         map[string]UnitResolver     `yaml:"resolvers"`
	PipelineResolvers map[string]PipelineResolver `yaml:"pipeline_resolvers"`

	Logging *Logging `yaml:"logging"`
	Domain  *Domain  `yaml:"domain"`

	// Schema holds the SDL text after Load; it is never parsed.
	Schema string `yaml:"-"`
}

// AuthSection declares the ordered authentication type list and at most one
// payload per mechanism type.
type AuthSection struct {
	Types         []string                         `yaml:"types"`
	OpenIDConnect *compiler.OpenIDConnectConfig    `yaml:"openid_connect"`
	Lambda        *compiler.LambdaAuthorizerConfig `yaml:"lambda_authorizer"`
	Cognito       *compiler.CognitoConfig          `yaml:"cognito"`
}

// Datasource declares one named backend.
type Datasource struct {
	Name           string `yaml:"name"`
	Kind           string `yaml:"kind"` // table | function | http | none
	BackendLocator string `yaml:"backend"`
}

// Function declares one reusable resolver step.
type Function struct {
	Name             string `yaml:"name"`
	Datasource       string `yaml:"datasource"`
	RequestTemplate  string `yaml:"request_template"`
	ResponseTemplate string `yaml:"response_template"`
}

// UnitResolver declares a resolver that talks directly to one datasource.
type UnitResolver struct {
	Name             string `yaml:"name"`
	Field            string `yaml:"field"` // "Type.field"
	Datasource       string `yaml:"datasource"`
	RequestTemplate  string `yaml:"request_template"`
	ResponseTemplate string `yaml:"response_template"`
}

// PipelineResolver declares a resolver that executes an ordered sequence of
// functions. The functions list order is execution order.
type PipelineResolver struct {
	Name             string   `yaml:"name"`
	Field            string   `yaml:"field"`
	RequestTemplate  string   `yaml:"request_template"`
	ResponseTemplate string   `yaml:"response_template"`
	Functions        []string `yaml:"functions"`
}

// Logging declares the CloudWatch logging settings for the API.
type Logging struct {
	FieldLogLevel         string `yaml:"field_log_level"` // NONE | ERROR | ALL
	ExcludeVerboseContent bool   `yaml:"exclude_verbose_content"`
	ServiceRoleARN        string `yaml:"service_role_arn"`
}

// Domain declares the custom domain association for the API.
type Domain struct {
	DomainName     string `yaml:"domain_name"`
	CertificateARN string `yaml:"certificate_arn"`
}

// Load reads and parses the manifest at path. The schema file is resolved
// relative to the manifest's directory and loaded as raw text.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	if m.SchemaFile != "" {
		schemaPath := m.SchemaFile
		if !filepath.IsAbs(schemaPath) {
			schemaPath = filepath.Join(filepath.Dir(path), schemaPath)
		}
		schema, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %w", err)
		}
		m.Schema = string(schema)
	}

	return m, nil
}

// Parse decodes manifest YAML without touching the filesystem.
func Parse(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest must declare an API name")
	}
	return &m, nil
}

// CompilerInput converts the manifest into the compiler's input shape.
// Validation of references, auth invariants, and payload presence is the
// compiler's job, not the manifest's.
func (m *Manifest) CompilerInput() compiler.Input {
	input := compiler.Input{
		Functions:         make(map[string]compiler.Function, len(m.Functions)),
		UnitResolvers:     make(map[string]compiler.UnitResolver, len(m.Resolvers)),
		PipelineResolvers: make(map[string]compiler.PipelineResolver, len(m.PipelineResolvers)),
		AuthPayloads: compiler.AuthPayloads{
			OpenIDConnect: m.Auth.OpenIDConnect,
			Lambda:        m.Auth.Lambda,
			Cognito:       m.Auth.Cognito,
		},
	}

	for _, ds := range m.Datasources {
		input.Datasources = append(input.Datasources, compiler.Datasource{
			Name:           ds.Name,
			Kind:           compiler.DatasourceKind(ds.Kind),
			BackendLocator: ds.BackendLocator,
		})
	}

	for key, fn := range m.Functions {
		input.Functions[key] = compiler.Function{
			Key:              key,
			Name:             fn.Name,
			DatasourceName:   fn.Datasource,
			RequestTemplate:  fn.RequestTemplate,
			ResponseTemplate: fn.ResponseTemplate,
		}
	}

	for key, rs := range m.Resolvers {
		input.UnitResolvers[key] = compiler.UnitResolver{
			Key:              key,
			Name:             rs.Name,
			FieldType:        rs.Field,
			DatasourceName:   rs.Datasource,
			RequestTemplate:  rs.RequestTemplate,
			ResponseTemplate: rs.ResponseTemplate,
		}
	}

	for key, rs := range m.PipelineResolvers {
		input.PipelineResolvers[key] = compiler.PipelineResolver{
			Key:              key,
			Name:             rs.Name,
			FieldType:        rs.Field,
			RequestTemplate:  rs.RequestTemplate,
			ResponseTemplate: rs.ResponseTemplate,
			FunctionKeys:     rs.Functions,
		}
	}

	for _, at := range m.Auth.Types {
		input.AuthTypes = append(input.AuthTypes, compiler.AuthType(at))
	}

	return input
}
