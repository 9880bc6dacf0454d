package compiler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() Input {
	return Input{
		Datasources: []Datasource{
			{Name: "orders_table", Kind: DatasourceTable, BackendLocator: "arn:aws:dynamodb:us-west-2:123456789012:table/orders"},
			{Name: "pricing_lambda", Kind: DatasourceFunction, BackendLocator: "arn:aws:lambda:us-west-2:123456789012:function:pricing"},
			{Name: "noop", Kind: DatasourceNone},
		},
		Functions: map[string]Function{
			"fetchOrder": {Name: "FetchOrder", DatasourceName: "orders_table", RequestTemplate: "{}", ResponseTemplate: "$ctx.result"},
			"priceOrder": {Name: "PriceOrder", DatasourceName: "pricing_lambda", RequestTemplate: "{}", ResponseTemplate: "$ctx.result"},
		},
		UnitResolvers: map[string]UnitResolver{
			"getOrder": {Name: "GetOrder", FieldType: "Query.getOrder", DatasourceName: "orders_table"},
		},
		PipelineResolvers: map[string]PipelineResolver{
			"getPricedOrder": {Name: "GetPricedOrder", FieldType: "Query.getPricedOrder", FunctionKeys: []string{"fetchOrder", "priceOrder"}},
		},
		AuthTypes: []AuthType{AuthAPIKey},
	}
}

func TestCompile_ValidInput(t *testing.T) {
	graph, err := Compile(validInput())
	require.NoError(t, err)
	require.NotNil(t, graph)

	assert.Len(t, graph.Datasources, 3)
	assert.Len(t, graph.Functions, 2)
	require.Len(t, graph.UnitResolvers, 1)
	require.Len(t, graph.PipelineResolvers, 1)

	// References are replaced by validated handles.
	assert.Equal(t, "orders_table", graph.UnitResolvers[0].Datasource.Name)
	assert.Equal(t, DatasourceTable, graph.UnitResolvers[0].Datasource.Kind)

	pipeline := graph.PipelineResolvers[0]
	require.Len(t, pipeline.Functions, 2)
	assert.Equal(t, "fetchOrder", pipeline.Functions[0].Key)
	assert.Equal(t, "priceOrder", pipeline.Functions[1].Key)
	assert.Equal(t, "pricing_lambda", pipeline.Functions[1].Datasource.Name)

	require.NotNil(t, graph.Auth.Primary)
	assert.Equal(t, AuthAPIKey, graph.Auth.Primary.Type)
}

func TestCompile_Deterministic(t *testing.T) {
	first, err := Compile(validInput())
	require.NoError(t, err)
	second, err := Compile(validInput())
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestCompile_DuplicateDatasourceFailsImmediately(t *testing.T) {
	input := validInput()
	input.Datasources = append(input.Datasources, Datasource{Name: "orders_table", Kind: DatasourceTable})
	// This dangling reference must never be reached: duplicate keys abort
	// before reference resolution runs.
	input.Functions["broken"] = Function{Name: "Broken", DatasourceName: "nowhere"}

	_, err := Compile(input)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	require.Len(t, compileErr.Errors, 1)

	var dup *DuplicateKeyError
	require.ErrorAs(t, compileErr.Errors[0], &dup)
	assert.Equal(t, "orders_table", dup.Key)
}

func TestCompile_AccumulatesAllDanglingReferences(t *testing.T) {
	input := validInput()
	input.Functions["orphan"] = Function{Name: "Orphan", DatasourceName: "X"}
	input.UnitResolvers["lost"] = UnitResolver{Name: "Lost", FieldType: "Query.lost", DatasourceName: "Y"}
	input.PipelineResolvers["ghost"] = PipelineResolver{Name: "Ghost", FieldType: "Query.ghost", FunctionKeys: []string{"nothing"}}

	_, err := Compile(input)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	require.Len(t, compileErr.Errors, 3)

	// Each independent problem is reported alongside the others, with
	// enough context to name both ends of the broken reference.
	assert.Contains(t, compileErr.Errors[0].Error(), `"X"`)
	assert.Contains(t, compileErr.Errors[0].Error(), `"orphan"`)
	assert.Contains(t, compileErr.Errors[1].Error(), `"Y"`)
	assert.Contains(t, compileErr.Errors[1].Error(), `"lost"`)
	assert.Contains(t, compileErr.Errors[2].Error(), `"nothing"`)
	assert.Contains(t, compileErr.Errors[2].Error(), `"ghost"`)
}

func TestCompile_EmptyPipelineReportedRegardlessOfOthers(t *testing.T) {
	input := validInput()
	input.PipelineResolvers["empty"] = PipelineResolver{Name: "Empty", FieldType: "Query.empty"}

	_, err := Compile(input)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	require.Len(t, compileErr.Errors, 1)

	var empty *EmptyPipelineError
	require.ErrorAs(t, compileErr.Errors[0], &empty)
	assert.Equal(t, "empty", empty.Resolver)
}

func TestCompile_AuthErrorsSurfaceWithReferenceErrors(t *testing.T) {
	input := validInput()
	input.AuthTypes = []AuthType{AuthOIDC}
	input.UnitResolvers["lost"] = UnitResolver{Name: "Lost", FieldType: "Query.lost", DatasourceName: "Y"}

	_, err := Compile(input)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	require.Len(t, compileErr.Errors, 2)

	var unknown *UnknownKeyError
	assert.ErrorAs(t, compileErr.Errors[0], &unknown)
	var missing *MissingPayloadError
	assert.ErrorAs(t, compileErr.Errors[1], &missing)
}

func TestCompile_NoPartialGraphOnFailure(t *testing.T) {
	input := validInput()
	input.UnitResolvers["lost"] = UnitResolver{Name: "Lost", FieldType: "Query.lost", DatasourceName: "Y"}

	graph, err := Compile(input)
	assert.Error(t, err)
	assert.Nil(t, graph)
}

func TestCompile_PipelineDuplicateFunctionKeys(t *testing.T) {
	input := validInput()
	input.PipelineResolvers["replay"] = PipelineResolver{
		Name:         "Replay",
		FieldType:    "Mutation.replay",
		FunctionKeys: []string{"fetchOrder", "priceOrder", "fetchOrder"},
	}

	graph, err := Compile(input)
	require.NoError(t, err)

	var replay *ResolvedPipelineResolver
	for i := range graph.PipelineResolvers {
		if graph.PipelineResolvers[i].Key == "replay" {
			replay = &graph.PipelineResolvers[i]
		}
	}
	require.NotNil(t, replay)

	keys := make([]string, 0, len(replay.Functions))
	for _, fn := range replay.Functions {
		keys = append(keys, fn.Key)
	}
	assert.Equal(t, []string{"fetchOrder", "priceOrder", "fetchOrder"}, keys)
}

func TestCompile_FunctionWithDanglingDatasourceStillLinkable(t *testing.T) {
	// A pipeline referencing a function whose own datasource reference is
	// broken reports only the function's problem, not a spurious
	// unknown-function error.
	input := validInput()
	input.Functions["orphan"] = Function{Name: "Orphan", DatasourceName: "X"}
	input.PipelineResolvers["uses_orphan"] = PipelineResolver{
		Name:         "UsesOrphan",
		FieldType:    "Query.usesOrphan",
		FunctionKeys: []string{"orphan"},
	}

	_, err := Compile(input)
	require.Error(t, err)

	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	require.Len(t, compileErr.Errors, 1)
	assert.Contains(t, compileErr.Errors[0].Error(), `"X"`)
}
