package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/model"
)

func TestMergeAssociativity(t *testing.T) {
	a := &model.ParsedSymbols{Functions: []model.Function{{ID: "a:f:1", Name: "f"}}}
	b := &model.ParsedSymbols{Functions: []model.Function{{ID: "a:g:10", Name: "g"}}}
	c := &model.ParsedSymbols{Functions: []model.Function{{ID: "a:h:20", Name: "h"}}}

	left := model.Merge(model.Merge(a, b), c)
	right := model.Merge(a, model.Merge(b, c))

	assert.ElementsMatch(t, left.Functions, right.Functions)
}

func TestMergeDeduplicatesNothingButPreservesOrder(t *testing.T) {
	a := &model.ParsedSymbols{Functions: []model.Function{{ID: "a:f:1"}}}
	b := &model.ParsedSymbols{Functions: []model.Function{{ID: "a:g:2"}}}
	merged := model.Merge(a, b)
	require.Len(t, merged.Functions, 2)
	assert.Equal(t, "a:f:1", merged.Functions[0].ID)
	assert.Equal(t, "a:g:2", merged.Functions[1].ID)
}

func TestTraitImplShadowing(t *testing.T) {
	standalone := model.Function{ID: "a:T::default:10", QualifiedName: "T::default", Crate: "a", LineStart: 10, IsTraitImpl: false}
	impl := model.Function{ID: "a:T::default:12", QualifiedName: "T::default", Crate: "a", LineStart: 12, IsTraitImpl: true}

	merged := model.Merge(&model.ParsedSymbols{Functions: []model.Function{standalone, impl}})

	var shadowed, kept bool
	for _, f := range merged.Functions {
		if f.ID == standalone.ID {
			shadowed = f.IsTraitImpl
		}
		if f.ID == impl.ID {
			kept = f.IsTraitImpl
		}
	}
	assert.True(t, shadowed, "standalone function within 5 lines of a trait impl must be shadowed")
	assert.True(t, kept)
}

func TestTraitImplShadowingRespectsLineDistance(t *testing.T) {
	standalone := model.Function{ID: "a:T::default:1", QualifiedName: "T::default", Crate: "a", LineStart: 1, IsTraitImpl: false}
	impl := model.Function{ID: "a:T::default:50", QualifiedName: "T::default", Crate: "a", LineStart: 50, IsTraitImpl: true}

	merged := model.Merge(&model.ParsedSymbols{Functions: []model.Function{standalone, impl}})
	for _, f := range merged.Functions {
		if f.ID == standalone.ID {
			assert.False(t, f.IsTraitImpl, "shadowing must not apply beyond a 5-line window")
		}
	}
}

func TestValidateCatchesUnknownCaller(t *testing.T) {
	set := model.Merge(&model.ParsedSymbols{
		Functions: []model.Function{{ID: "a:f:1"}},
		Calls:     []model.Call{{CallerID: "a:missing:1", CalleeName: "f"}},
	})
	err := set.Validate()
	assert.Error(t, err)
}

func TestValidateCrossCrateLaw(t *testing.T) {
	to := "b"
	set := model.Merge(&model.ParsedSymbols{
		Functions: []model.Function{{ID: "a:f:1"}},
		Calls: []model.Call{{
			CallerID:   "a:f:1",
			CalleeName: "helper",
			FromCrate:  "a",
			ToCrate:    &to,
		}},
	})
	require.NoError(t, set.Validate())
	assert.True(t, set.Calls[0].CrossCrate())
}

func TestFunctionID(t *testing.T) {
	assert.Equal(t, "a:b::c:42", model.FunctionID("a", "b::c", 42))
}
