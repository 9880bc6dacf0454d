package policy

import (
	"context"
	"testing"

	"github.com/stackmesh/appsyncctl/internal/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileGraph(t *testing.T, input compiler.Input) *compiler.Graph {
	t.Helper()
	graph, err := compiler.Compile(input)
	require.NoError(t, err)
	return graph
}

func TestValidator_ValidateGraph(t *testing.T) {
	validator, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name             string
		input            compiler.Input
		env              string
		expectAllow      bool
		expectViolations []string
	}{
		{
			name: "clean graph in dev",
			input: compiler.Input{
				Datasources: []compiler.Datasource{
					{Name: "orders_table", Kind: compiler.DatasourceTable, BackendLocator: "arn:aws:dynamodb:us-west-2:123456789012:table/orders"},
				},
				AuthTypes: []compiler.AuthType{compiler.AuthIAM},
			},
			env:         "dev",
			expectAllow: true,
		},
		{
			name: "API_KEY primary allowed outside prd",
			input: compiler.Input{
				AuthTypes: []compiler.AuthType{compiler.AuthAPIKey},
			},
			env:         "dev",
			expectAllow: true,
		},
		{
			name: "API_KEY primary rejected in prd",
			input: compiler.Input{
				AuthTypes: []compiler.AuthType{compiler.AuthAPIKey},
			},
			env:         "prd",
			expectAllow: false,
			expectViolations: []string{
				"API_KEY must not be the primary auth mechanism in prd",
			},
		},
		{
			name: "invalid datasource name",
			input: compiler.Input{
				Datasources: []compiler.Datasource{
					{Name: "orders-table", Kind: compiler.DatasourceTable, BackendLocator: "arn:aws:dynamodb:us-west-2:123456789012:table/orders"},
				},
				AuthTypes: []compiler.AuthType{compiler.AuthIAM},
			},
			env:         "dev",
			expectAllow: false,
			expectViolations: []string{
				`datasource name "orders-table" is not a valid AppSync name`,
			},
		},
		{
			name: "http datasource without tls",
			input: compiler.Input{
				Datasources: []compiler.Datasource{
					{Name: "pricing_api", Kind: compiler.DatasourceHTTP, BackendLocator: "http://pricing.internal"},
				},
				AuthTypes: []compiler.AuthType{compiler.AuthIAM},
			},
			env:         "dev",
			expectAllow: false,
			expectViolations: []string{
				`http datasource "pricing_api" must use an https endpoint`,
			},
		},
		{
			name: "plain http oidc issuer",
			input: compiler.Input{
				AuthTypes: []compiler.AuthType{compiler.AuthOIDC},
				AuthPayloads: compiler.AuthPayloads{
					OpenIDConnect: &compiler.OpenIDConnectConfig{Issuer: "http://issuer.example.com"},
				},
			},
			env:         "dev",
			expectAllow: false,
			expectViolations: []string{
				"OPENID_CONNECT issuer must be an https URL",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			graph := compileGraph(t, tc.input)

			result, err := validator.ValidateGraph(context.Background(), graph, tc.env)
			require.NoError(t, err)

			assert.Equal(t, tc.expectAllow, result.Allowed)
			if tc.expectViolations != nil {
				assert.Equal(t, tc.expectViolations, result.Violations)
			}
		})
	}
}
