package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/architecture"
	"crateindex/internal/graph"
	"crateindex/internal/index"
	"crateindex/internal/model"
)

func TestBuildDualLabelsActorType(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Types = []model.Type{
		{ID: "core:Worker:1", Name: "Worker", QualifiedName: "Worker", Crate: "core", Kind: model.KindStruct},
	}
	ps.Actors = []model.Actor{
		{ID: "core:Worker:1", Kind: model.ActorKindBasic},
	}

	g := graph.Build(ps, index.New())

	var worker *graph.Vertex
	for i := range g.Vertices {
		if g.Vertices[i].ID == "core:Worker:1" {
			worker = &g.Vertices[i]
		}
	}
	require.NotNil(t, worker)
	assert.Contains(t, worker.Labels, "Type")
	assert.Contains(t, worker.Labels, "Actor")
}

func TestBuildEmitsMembershipEdges(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{ID: "core:run:1", Name: "run", QualifiedName: "run", Crate: "core"},
	}

	g := graph.Build(ps, index.New())

	found := false
	for _, e := range g.Edges {
		if e.Type == "DECLARES" && e.From == "crate:core" && e.To == "core:run:1" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuildUnresolvedCallPointsAtPlaceholder(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Calls = []model.Call{
		{CallerID: "core:main:1", CalleeName: "mystery", Kind: model.CallKindFunction, FromCrate: "core"},
	}

	g := graph.Build(ps, index.New())

	require.Len(t, g.Edges, 1)
	assert.Equal(t, "unresolved:mystery", g.Edges[0].To)
	assert.False(t, g.Edges[0].Properties["resolved"].(bool))
}

func TestApplyViolationsTagsMatchingEdge(t *testing.T) {
	toCrate := "handlers"
	ps := model.NewParsedSymbols()
	ps.Calls = []model.Call{
		{CallerID: "domain:run:1", Line: 42, CalleeName: "handle", Kind: model.CallKindFunction, FromCrate: "domain", ToCrate: &toCrate},
	}

	g := graph.Build(ps, index.New())
	graph.ApplyViolations(g, []architecture.Violation{
		{CallerID: "domain:run:1", Line: 42, Kind: architecture.KindReverseDependency, Severity: architecture.SeverityError},
	})

	require.Len(t, g.Edges, 1)
	assert.True(t, g.Edges[0].Properties["violates_architecture"].(bool))
	assert.Equal(t, "reverse-dependency", g.Edges[0].Properties["violation_kind"])
}

func TestApplyViolationsLeavesUnmatchedEdgesClean(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Calls = []model.Call{
		{CallerID: "core:run:1", Line: 1, CalleeName: "helper", Kind: model.CallKindFunction, FromCrate: "core"},
	}

	g := graph.Build(ps, index.New())
	graph.ApplyViolations(g, nil)

	assert.False(t, g.Edges[0].Properties["violates_architecture"].(bool))
}
