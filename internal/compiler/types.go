package compiler

// DatasourceKind tags the backend a datasource fronts.
type DatasourceKind string

const (
	DatasourceTable    DatasourceKind = "table"
	DatasourceFunction DatasourceKind = "function"
	DatasourceHTTP     DatasourceKind = "http"
	DatasourceNone     DatasourceKind = "none"
)

// Datasource is a named backend that resolvers and functions read or write
// through. Immutable once declared; referenced by name, never mutated.
type Datasource struct {
	Name           string         `json:"name"`
	Kind           DatasourceKind `json:"kind"`
	BackendLocator string         `json:"backend_locator,omitempty"`
}

// Function is a reusable resolver step bound to one datasource by name.
// The request/response templates are opaque to the compiler.
type Function struct {
	Key              string `json:"key"`
	Name             string `json:"name"`
	DatasourceName   string `json:"datasource"`
	RequestTemplate  string `json:"request_template,omitempty"`
	ResponseTemplate string `json:"response_template,omitempty"`
}

// UnitResolver resolves one API field directly against one datasource.
type UnitResolver struct {
	Key              string `json:"key"`
	Name             string `json:"name"`
	FieldType        string `json:"field"` // "Type.field"
	DatasourceName   string `json:"datasource"`
	RequestTemplate  string `json:"request_template,omitempty"`
	ResponseTemplate string `json:"response_template,omitempty"`
}

// PipelineResolver resolves one API field by executing an ordered sequence
// of functions. FunctionKeys order is execution order; duplicates are
// allowed and the list must not be empty.
type PipelineResolver struct {
	Key              string   `json:"key"`
	Name             string   `json:"name"`
	FieldType        string   `json:"field"`
	RequestTemplate  string   `json:"request_template,omitempty"`
	ResponseTemplate string   `json:"response_template,omitempty"`
	FunctionKeys     []string `json:"function_keys"`
}

// ResolvedFunction is a function with its datasource reference replaced by
// a validated handle.
type ResolvedFunction struct {
	Function
	Datasource Datasource `json:"resolved_datasource"`
}

// ResolvedUnitResolver is a unit resolver with its datasource reference
// replaced by a validated handle.
type ResolvedUnitResolver struct {
	UnitResolver
	Datasource Datasource `json:"resolved_datasource"`
}

// ResolvedPipelineResolver is a pipeline resolver with its function keys
// replaced by validated handles, in declared execution order.
type ResolvedPipelineResolver struct {
	PipelineResolver
	Functions []ResolvedFunction `json:"resolved_functions"`
}

// Input is the raw declarative description of one API, as handed over by
// the manifest layer. Maps are keyed by declared entity key; the compiler
// iterates them in sorted key order so output is deterministic.
type Input struct {
	Datasources       []Datasource
	Functions         map[string]Function
	UnitResolvers     map[string]UnitResolver
	PipelineResolvers map[string]PipelineResolver
	AuthTypes         []AuthType
	AuthPayloads      AuthPayloads
}

// Graph is the fully-resolved configuration graph: every string reference
// validated and replaced by a handle, every list in deterministic order.
// A Graph is only produced when the whole input compiled cleanly.
type Graph struct {
	Datasources       []Datasource               `json:"datasources"`
	Functions         []ResolvedFunction         `json:"functions"`
	UnitResolvers     []ResolvedUnitResolver     `json:"unit_resolvers"`
	PipelineResolvers []ResolvedPipelineResolver `json:"pipeline_resolvers"`
	Auth              AuthConfig                 `json:"auth"`
}
