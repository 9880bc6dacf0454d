package compiler

import (
	"fmt"
	"strings"
)

// EntityKind identifies which kind of declared entity an error refers to.
type EntityKind string

const (
	KindDatasource EntityKind = "datasource"
	KindFunction   EntityKind = "function"
	KindResolver   EntityKind = "resolver"
)

// DuplicateKeyError is returned when the same key is declared twice within
// one entity table. It is the one error reported immediately rather than
// accumulated: a table with a duplicated key cannot be built further.
type DuplicateKeyError struct {
	Kind EntityKind
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s %q declared more than once", e.Kind, e.Key)
}

// UnknownKeyError is returned when a reference names a key that is absent
// from the target table. ReferencedBy identifies the entity holding the
// dangling reference so all broken references can be fixed in one pass.
type UnknownKeyError struct {
	Kind         EntityKind // kind of the missing entity
	Key          string     // the key that failed to resolve
	ReferencedBy string     // "kind key" of the referencing entity, if any
}

func (e *UnknownKeyError) Error() string {
	if e.ReferencedBy == "" {
		return fmt.Sprintf("%s %q does not exist", e.Kind, e.Key)
	}
	return fmt.Sprintf("%s %q referenced by %s does not exist", e.Kind, e.Key, e.ReferencedBy)
}

// EmptyPipelineError is returned when a pipeline resolver declares no
// functions. An empty pipeline has nothing to execute.
type EmptyPipelineError struct {
	Resolver string
}

func (e *EmptyPipelineError) Error() string {
	return fmt.Sprintf("pipeline resolver %q declares no functions", e.Resolver)
}

// MissingPayloadError is returned when an auth mechanism appears in the
// authentication type list but its required configuration payload was not
// supplied. API_KEY and AWS_IAM carry no payload and never produce this.
type MissingPayloadError struct {
	Mechanism AuthType
}

func (e *MissingPayloadError) Error() string {
	return fmt.Sprintf("auth mechanism %s requires a configuration payload but none was supplied", e.Mechanism)
}

// DuplicateMechanismError is returned when the same auth mechanism appears
// more than once in the authentication type list.
type DuplicateMechanismError struct {
	Mechanism AuthType
}

func (e *DuplicateMechanismError) Error() string {
	return fmt.Sprintf("auth mechanism %s listed more than once", e.Mechanism)
}

// UnsupportedMechanismError is returned when the authentication type list
// names a mechanism outside the five supported types.
type UnsupportedMechanismError struct {
	Mechanism string
}

func (e *UnsupportedMechanismError) Error() string {
	return fmt.Sprintf("unsupported auth mechanism %q", e.Mechanism)
}

// CompileError aggregates every validation failure found during one compile
// pass. The compiler never stops at the first problem within a resolution
// pass, so a single failed compile lists everything the user has to fix.
type CompileError struct {
	Errors []error
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration is invalid (%d error(s)):", len(e.Errors))
	for _, err := range e.Errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *CompileError) Unwrap() []error {
	return e.Errors
}
