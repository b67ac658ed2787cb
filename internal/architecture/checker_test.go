package architecture_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/architecture"
	"crateindex/internal/discover"
	"crateindex/internal/model"
)

func toCrate(s string) *string { return &s }

func threeLayerPolicy() architecture.Policy {
	return architecture.Policy{Layers: []discover.Layer{
		{Name: "domain", Crates: []string{"domain"}},
		{Name: "service", Crates: []string{"service"}},
		{Name: "handlers", Crates: []string{"handlers"}},
	}}
}

func TestCheckFlagsAdjacentReverseDependency(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Calls = append(ps.Calls, model.Call{
		CallerID:  "domain:domain::run:1",
		FromCrate: "domain",
		ToCrate:   toCrate("service"),
		Kind:      model.CallKindFunction,
	})
	layers := map[string]string{"domain": "domain", "service": "service"}

	violations := architecture.Check(ps, layers, threeLayerPolicy())
	require.Len(t, violations, 1)
	assert.Equal(t, architecture.KindReverseDependency, violations[0].Kind)
	assert.Equal(t, architecture.SeverityError, violations[0].Severity)
}

func TestCheckFlagsLayerSkip(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Calls = append(ps.Calls, model.Call{
		CallerID:  "domain:domain::run:1",
		FromCrate: "domain",
		ToCrate:   toCrate("handlers"),
		Kind:      model.CallKindFunction,
	})
	layers := map[string]string{"domain": "domain", "handlers": "handlers"}

	violations := architecture.Check(ps, layers, threeLayerPolicy())
	require.Len(t, violations, 1)
	assert.Equal(t, architecture.KindLayerSkip, violations[0].Kind)
}

func TestCheckAllowsOuterCallingInner(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Calls = append(ps.Calls, model.Call{
		CallerID:  "handlers:handlers::run:1",
		FromCrate: "handlers",
		ToCrate:   toCrate("domain"),
		Kind:      model.CallKindFunction,
	})
	layers := map[string]string{"handlers": "handlers", "domain": "domain"}

	assert.Empty(t, architecture.Check(ps, layers, threeLayerPolicy()))
}

func TestCheckSkipsUntaggedCrates(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Calls = append(ps.Calls, model.Call{
		CallerID:  "a:a::run:1",
		FromCrate: "a",
		ToCrate:   toCrate("b"),
		Kind:      model.CallKindFunction,
	})
	assert.Empty(t, architecture.Check(ps, map[string]string{}, threeLayerPolicy()))
}
