package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/model"
	"crateindex/internal/resolve"
)

func TestResolveFunctionCallSameFile(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{ID: "core:helper:10", Name: "helper", QualifiedName: "helper", Crate: "core", File: "core/src/lib.rs"},
	}
	ps.Calls = []model.Call{
		{CallerID: "core:main:1", File: "core/src/lib.rs", CalleeName: "helper", Kind: model.CallKindFunction, FromCrate: "core"},
	}

	resolve.Resolve(ps)

	require.NotNil(t, ps.Calls[0].QualifiedCallee)
	assert.Equal(t, "helper", *ps.Calls[0].QualifiedCallee)
	assert.Nil(t, ps.Calls[0].ToCrate)
}

func TestResolveFunctionCallAmbiguousStaysUnresolved(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{ID: "core:a:1", Name: "helper", QualifiedName: "mod_a::helper", Crate: "core", File: "core/src/a.rs"},
		{ID: "core:b:1", Name: "helper", QualifiedName: "mod_b::helper", Crate: "core", File: "core/src/b.rs"},
	}
	ps.Calls = []model.Call{
		{CallerID: "core:main:1", File: "core/src/main.rs", CalleeName: "helper", Kind: model.CallKindFunction, FromCrate: "core"},
	}

	resolve.Resolve(ps)

	assert.Nil(t, ps.Calls[0].QualifiedCallee)
}

func TestResolveMethodCallSynthesizesTraitDispatch(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{ID: "core:A::run:1", Name: "run", QualifiedName: "A::run", Crate: "core", IsTraitImpl: true},
		{ID: "core:B::run:2", Name: "run", QualifiedName: "B::run", Crate: "core", IsTraitImpl: true},
	}
	ps.Calls = []model.Call{
		{CallerID: "core:main:1", CalleeName: "run", Kind: model.CallKindMethod, FromCrate: "core"},
	}

	resolve.Resolve(ps)

	require.NotNil(t, ps.Calls[0].QualifiedCallee)
	assert.Equal(t, "<trait-dispatch>::run", *ps.Calls[0].QualifiedCallee)
	assert.True(t, ps.Calls[0].IsSynthetic)
	assert.Equal(t, 0.90, ps.Calls[0].SyntheticConfidence)
}

func TestResolveMethodCallSingleImplResolvesDirectly(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{ID: "core:A::run:1", Name: "run", QualifiedName: "A::run", Crate: "core", IsTraitImpl: true},
	}
	ps.Calls = []model.Call{
		{CallerID: "core:main:1", CalleeName: "run", Kind: model.CallKindMethod, FromCrate: "core"},
	}

	resolve.Resolve(ps)

	require.NotNil(t, ps.Calls[0].QualifiedCallee)
	assert.Equal(t, "A::run", *ps.Calls[0].QualifiedCallee)
	assert.False(t, ps.Calls[0].IsSynthetic)
}

func TestResolveSynthesizesTraitDispatchFromImplsWithoutAnyCallSite(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{ID: "core:A::run:1", Name: "run", QualifiedName: "A::run", Crate: "core", File: "core/src/a.rs", LineStart: 1, IsTraitImpl: true},
		{ID: "core:B::run:2", Name: "run", QualifiedName: "B::run", Crate: "core", File: "core/src/b.rs", LineStart: 2, IsTraitImpl: true},
	}
	ps.Impls = []model.ImplBlock{
		{TypeName: "A", TraitName: "Runnable", File: "core/src/a.rs", Line: 1, Methods: []string{"core:A::run:1"}},
		{TypeName: "B", TraitName: "Runnable", File: "core/src/b.rs", Line: 2, Methods: []string{"core:B::run:2"}},
	}

	resolve.Resolve(ps)

	var edges []model.Call
	for _, c := range ps.Calls {
		if c.CallerID == "core:<trait-dispatch>::run:0" {
			edges = append(edges, c)
		}
	}
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.True(t, e.IsSynthetic)
		assert.Equal(t, 0.90, e.SyntheticConfidence)
		require.NotNil(t, e.QualifiedCallee)
	}

	_, ok := ps.FunctionByID("core:<trait-dispatch>::run:0")
	assert.True(t, ok, "dispatcher function must exist even though nothing calls run() directly")
}
