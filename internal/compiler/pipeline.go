package compiler

import "fmt"

// LinkPipeline resolves a pipeline resolver's ordered function keys into
// function handles. The output order is exactly the input order, duplicates
// included: pipeline execution order is a contract with the downstream
// execution engine and is never reordered, deduplicated, or sorted.
//
// An empty key list fails with EmptyPipelineError. Unresolvable keys are
// all collected before returning, so every broken reference in the pipeline
// surfaces at once.
func LinkPipeline(functions *Table[ResolvedFunction], resolverKey string, keys []string) ([]ResolvedFunction, []error) {
	if len(keys) == 0 {
		return nil, []error{&EmptyPipelineError{Resolver: resolverKey}}
	}

	referencedBy := fmt.Sprintf("pipeline resolver %q", resolverKey)
	handles, errs := ResolveAll(functions, keys, referencedBy)
	if len(errs) > 0 {
		return nil, errs
	}
	return handles, nil
}
