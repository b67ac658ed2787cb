package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/index"
	"crateindex/internal/model"
)

func TestResolveCrossCrateCratePrefixAsDirectExport(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{Name: "helper", QualifiedName: "a::helper", Crate: "a", File: "a/src/lib.rs", LineStart: 3, Visibility: model.VisibilityPublic},
	}
	ps.Calls = []model.Call{
		{CallerID: "b:module_level", CalleeName: "helper", Kind: model.CallKindAssociated, FromCrate: "b", ScopePrefix: "a"},
	}

	idx := index.Build(ps)
	index.ResolveCrossCrate(ps, idx)

	c := ps.Calls[0]
	require.NotNil(t, c.QualifiedCallee)
	assert.Equal(t, "a::helper", *c.QualifiedCallee)
	require.NotNil(t, c.ToCrate)
	assert.Equal(t, "a", *c.ToCrate)
	assert.True(t, c.CrossCrate())
}

func TestResolveCrossCrateAssociatedTypeMethod(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{Name: "new", QualifiedName: "Order::new", Crate: "orders", File: "orders/src/lib.rs", LineStart: 5, Visibility: model.VisibilityPublic},
	}
	ps.Types = []model.Type{
		{Name: "Order", QualifiedName: "Order", Crate: "orders", Kind: model.KindStruct, Visibility: model.VisibilityPublic},
	}
	ps.Calls = []model.Call{
		{CallerID: "billing:module_level", CalleeName: "new", Kind: model.CallKindAssociated, FromCrate: "billing", ScopePrefix: "Order"},
	}

	idx := index.Build(ps)
	index.ResolveCrossCrate(ps, idx)

	c := ps.Calls[0]
	require.NotNil(t, c.QualifiedCallee)
	assert.Equal(t, "Order::new", *c.QualifiedCallee)
	require.NotNil(t, c.ToCrate)
	assert.Equal(t, "orders", *c.ToCrate)
}

func TestResolveCrossCrateLeavesAmbiguousUnresolved(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{Name: "new", QualifiedName: "Order::new", Crate: "orders", Visibility: model.VisibilityPublic},
		{Name: "new", QualifiedName: "Order::new", Crate: "orders2", Visibility: model.VisibilityPublic},
	}
	ps.Types = []model.Type{
		{Name: "Order", QualifiedName: "Order", Crate: "orders", Kind: model.KindStruct, Visibility: model.VisibilityPublic},
		{Name: "Order", QualifiedName: "Order", Crate: "orders2", Kind: model.KindStruct, Visibility: model.VisibilityPublic},
	}
	ps.Calls = []model.Call{
		{CallerID: "billing:module_level", CalleeName: "new", Kind: model.CallKindAssociated, FromCrate: "billing", ScopePrefix: "Order"},
	}

	idx := index.Build(ps)
	index.ResolveCrossCrate(ps, idx)

	assert.Nil(t, ps.Calls[0].QualifiedCallee)
}

func TestResolveCrossCrateSkipsAlreadyResolvedCalls(t *testing.T) {
	ps := model.NewParsedSymbols()
	qualified := "already::resolved"
	ps.Calls = []model.Call{
		{CallerID: "b:module_level", CalleeName: "helper", QualifiedCallee: &qualified, Kind: model.CallKindAssociated, FromCrate: "b", ScopePrefix: "a"},
	}

	idx := index.Build(ps)
	index.ResolveCrossCrate(ps, idx)

	assert.Equal(t, "already::resolved", *ps.Calls[0].QualifiedCallee)
}
