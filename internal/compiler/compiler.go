// Package compiler validates a declarative API description and links its
// string-keyed cross-references into a fully-resolved configuration graph.
//
// The compile is a pure, single-threaded computation: no I/O, no shared
// state across invocations, identical input always yields an identical
// graph or an identical error list. Validation accumulates every
// independent problem before reporting, so one failed compile lists
// everything the user has to fix; the one exception is a duplicate key at
// declaration time, which aborts immediately because a corrupted table
// cannot be built further.
package compiler

import (
	"fmt"
	"sort"

	"github.com/savaki/gox/slicex"
)

// Compile builds entity tables from input, resolves every cross-reference,
// composes the authentication configuration, and returns the resolved
// graph. The outcome is atomic: either a complete Graph, or a CompileError
// listing every validation failure and no partial graph.
func Compile(input Input) (*Graph, error) {
	var errs []error

	// Stage 1: declare datasources. Duplicate names fail immediately,
	// before any reference resolution runs.
	datasources := NewTable[Datasource](KindDatasource)
	for _, ds := range input.Datasources {
		if err := datasources.Declare(ds.Name, ds); err != nil {
			return nil, &CompileError{Errors: []error{err}}
		}
	}

	// Stage 2: declare functions, checking each datasource reference as it
	// is declared. A function with a dangling reference is still declared
	// so pipelines referencing it report only their own problems.
	functions := NewTable[ResolvedFunction](KindFunction)
	for _, key := range sortedKeys(input.Functions) {
		fn := input.Functions[key]
		fn.Key = key
		resolved := ResolvedFunction{Function: fn}

		referencedBy := fmt.Sprintf("function %q", key)
		ds, err := Resolve(datasources, fn.DatasourceName, referencedBy)
		if err != nil {
			errs = append(errs, err)
		} else {
			resolved.Datasource = ds
		}

		if err := functions.Declare(key, resolved); err != nil {
			return nil, &CompileError{Errors: []error{err}}
		}
	}

	// Stage 3: resolve unit resolver datasource references and pipeline
	// resolver function lists, accumulating across all resolvers.
	var unitResolvers []ResolvedUnitResolver
	for _, key := range sortedKeys(input.UnitResolvers) {
		rs := input.UnitResolvers[key]
		rs.Key = key

		referencedBy := fmt.Sprintf("resolver %q", key)
		ds, err := Resolve(datasources, rs.DatasourceName, referencedBy)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		unitResolvers = append(unitResolvers, ResolvedUnitResolver{UnitResolver: rs, Datasource: ds})
	}

	var pipelineResolvers []ResolvedPipelineResolver
	for _, key := range sortedKeys(input.PipelineResolvers) {
		rs := input.PipelineResolvers[key]
		rs.Key = key

		handles, linkErrs := LinkPipeline(functions, key, rs.FunctionKeys)
		if len(linkErrs) > 0 {
			errs = append(errs, linkErrs...)
			continue
		}
		pipelineResolvers = append(pipelineResolvers, ResolvedPipelineResolver{PipelineResolver: rs, Functions: handles})
	}

	// Stage 4: compose the authentication configuration.
	auth, authErrs := ComposeAuth(input.AuthTypes, input.AuthPayloads)
	errs = append(errs, authErrs...)

	if len(errs) > 0 {
		return nil, &CompileError{Errors: errs}
	}

	resolvedFunctions, _ := ResolveAll(functions, functions.Keys(), "")

	return &Graph{
		Datasources:       slicex.Map(datasources.Keys(), mustLookup(datasources)),
		Functions:         resolvedFunctions,
		UnitResolvers:     unitResolvers,
		PipelineResolvers: pipelineResolvers,
		Auth:              auth,
	}, nil
}

// sortedKeys returns the map's keys in sorted order so compile output and
// error order are deterministic regardless of map iteration order.
func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// mustLookup adapts a table into a key→entity mapper over keys known to be
// declared.
func mustLookup[T any](table *Table[T]) func(string) T {
	return func(key string) T {
		entity, _ := table.Lookup(key)
		return entity
	}
}
