// Package provision materializes a compiled configuration graph into
// managed AppSync resources. The compiler never imports this package; the
// CLI hands a resolved graph over and treats everything here as opaque
// side effects.
package provision

import (
	"context"

	"github.com/stackmesh/appsyncctl/internal/compiler"
)

// Provisioner applies a resolved configuration graph to a managed API
// backend.
type Provisioner interface {
	Apply(ctx context.Context, graph *compiler.Graph, settings Settings) (*Result, error)
}

// LoggingSettings configures CloudWatch logging for the API.
type LoggingSettings struct {
	FieldLogLevel         string // NONE | ERROR | ALL
	ExcludeVerboseContent bool
	ServiceRoleARN        string
}

// DomainSettings configures the custom-domain association for the API.
type DomainSettings struct {
	DomainName     string
	CertificateARN string
}

// Settings carries everything the provisioner needs beyond the graph
// itself: the API identity, the opaque schema text, and the deploy-time
// configuration resolved from the parameter store.
type Settings struct {
	APIName string
	Env     string
	Schema  string

	// DatasourceRoleARN is the service role AppSync assumes when calling
	// DynamoDB or Lambda backends. Required when the graph declares table
	// or function datasources.
	DatasourceRoleARN string

	Logging *LoggingSettings
	Domain  *DomainSettings

	// RunID tags log output for one apply invocation.
	RunID string
}

// Result reports the identifiers of the provisioned resources.
type Result struct {
	APIID  string            `json:"api_id"`
	APIARN string            `json:"api_arn"`
	URIs   map[string]string `json:"uris,omitempty"`

	// FunctionIDs maps declared function keys to AppSync function IDs.
	FunctionIDs map[string]string `json:"function_ids,omitempty"`
}
