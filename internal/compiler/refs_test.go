package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_AttributesReferencingEntity(t *testing.T) {
	table := NewTable[Datasource](KindDatasource)

	_, err := Resolve(table, "X", `function "getOrder"`)
	require.Error(t, err)

	var unknown *UnknownKeyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "X", unknown.Key)
	assert.Equal(t, `function "getOrder"`, unknown.ReferencedBy)
	assert.Contains(t, err.Error(), "X")
	assert.Contains(t, err.Error(), "getOrder")
}

func TestResolveAll_CollectsEveryMiss(t *testing.T) {
	table := NewTable[Datasource](KindDatasource)
	require.NoError(t, table.Declare("orders", Datasource{Name: "orders"}))

	handles, errs := ResolveAll(table, []string{"missing1", "orders", "missing2"}, "resolver")

	// Both misses are reported; the earlier failure does not mask the later.
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "missing1")
	assert.Contains(t, errs[1].Error(), "missing2")

	// The resolvable key still resolved.
	require.Len(t, handles, 1)
	assert.Equal(t, "orders", handles[0].Name)
}

func TestResolveAll_PreservesOrderAndDuplicates(t *testing.T) {
	table := NewTable[Datasource](KindDatasource)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, table.Declare(name, Datasource{Name: name}))
	}

	handles, errs := ResolveAll(table, []string{"a", "b", "a", "c"}, "resolver")
	require.Empty(t, errs)

	names := make([]string, 0, len(handles))
	for _, h := range handles {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"a", "b", "a", "c"}, names)
}
