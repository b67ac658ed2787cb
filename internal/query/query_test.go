package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/architecture"
	"crateindex/internal/graph"
	"crateindex/internal/index"
	"crateindex/internal/model"
	"crateindex/internal/query"
)

func qualified(s string) *string { return &s }

func sampleStore() *query.Store {
	ps := model.NewParsedSymbols()
	ps.Crates = []model.Crate{{Name: "core", Layer: "domain"}}
	ps.Functions = []model.Function{
		{ID: "core:run:1", Name: "run", QualifiedName: "run", Crate: "core", File: "src/lib.rs", LineStart: 1, Visibility: model.VisibilityPublic},
		{ID: "core:helper:10", Name: "helper", QualifiedName: "helper", Crate: "core", File: "src/lib.rs", LineStart: 10},
		{ID: "core:dead:20", Name: "dead", QualifiedName: "dead", Crate: "core", File: "src/lib.rs", LineStart: 20},
		{ID: "core:test_run:30", Name: "test_run", QualifiedName: "test_run", Crate: "core", File: "src/lib.rs", LineStart: 30, IsTest: true},
	}
	ps.Calls = []model.Call{
		{CallerID: "core:run:1", CalleeName: "helper", QualifiedCallee: qualified("helper"), Kind: model.CallKindFunction, FromCrate: "core"},
		{CallerID: "core:test_run:30", CalleeName: "helper", QualifiedCallee: qualified("helper"), Kind: model.CallKindFunction, FromCrate: "core"},
	}
	ps.Types = []model.Type{
		{ID: "core:Worker:1", Name: "Worker", QualifiedName: "Worker", Crate: "core", Kind: model.KindStruct},
	}
	ps.Actors = []model.Actor{
		{ID: "core:Worker:1", Kind: model.ActorKindBasic, IsDistributed: true},
	}
	ps.Spawns = []model.ActorSpawn{{Parent: "core:run:1", Child: "core:Worker:1", Method: model.SpawnMethodSpawn, Pattern: model.SpawnPatternDirectType}}
	ps.Sends = []model.MessageSend{{Sender: "core:run:1", Target: "core:Worker:1", Message: "Ping", Method: model.SendMethodTell}}

	g := graph.Build(ps, index.New())
	violations := []architecture.Violation{{FromLayer: "domain", ToLayer: "handlers", Kind: architecture.KindLayerSkip, Severity: architecture.SeverityError}}

	return &query.Store{Symbols: ps, Graph: g, Index: index.New(), Violations: violations}
}

func TestGetCrateOverviewCountsEverything(t *testing.T) {
	rows := sampleStore().GetCrateOverview()
	require.Len(t, rows, 1)
	assert.Equal(t, "core", rows[0].Name)
	assert.Equal(t, 4, rows[0].FunctionCount)
	assert.Equal(t, 1, rows[0].TypeCount)
	assert.Equal(t, 1, rows[0].ActorCount)
}

func TestListFunctionsFiltersBySearch(t *testing.T) {
	rows := sampleStore().ListFunctions("help", 0)
	require.Len(t, rows, 1)
	assert.Equal(t, "helper", rows[0].QualifiedName)
}

func TestFindUnreferencedFunctionsExcludesCalledAndTests(t *testing.T) {
	rows := sampleStore().FindUnreferencedFunctions(nil)
	var names []string
	for _, r := range rows {
		names = append(names, r.QualifiedName)
	}
	assert.Contains(t, names, "dead")
	assert.NotContains(t, names, "helper")
	assert.NotContains(t, names, "test_run")
}

func TestFindTestOnlyFunctionsFindsHelperCalledOnlyFromTest(t *testing.T) {
	s := sampleStore()
	// Remove the production call so helper is reached only from the test.
	s.Symbols.Calls = s.Symbols.Calls[1:]
	rows := s.FindTestOnlyFunctions()
	require.Len(t, rows, 1)
	assert.Equal(t, "helper", rows[0].QualifiedName)
}

func TestGetFunctionDetailsResolvesCallersAndCallees(t *testing.T) {
	d, ok := sampleStore().GetFunctionDetails("core:run:1")
	require.True(t, ok)
	assert.Contains(t, d.Callees, "helper")
}

func TestGetActorDetailsByTypeName(t *testing.T) {
	a, ok := sampleStore().GetActorDetails("Worker")
	require.True(t, ok)
	assert.True(t, a.IsDistributed)
}

func TestGetDistributedActors(t *testing.T) {
	rows := sampleStore().GetDistributedActors()
	require.Len(t, rows, 1)
	assert.Equal(t, "core:Worker:1", rows[0].ID)
}

func TestGenerateActorSpawnDiagram(t *testing.T) {
	rows := sampleStore().GenerateActorSpawnDiagram()
	require.Len(t, rows, 1)
	assert.Equal(t, "core:Worker:1", rows[0].Child)
}

func TestGetLayerHealthCountsViolationsPerLayer(t *testing.T) {
	rows := sampleStore().GetLayerHealth()
	require.Len(t, rows, 1)
	assert.Equal(t, "domain", rows[0].Layer)
	assert.Equal(t, 1, rows[0].ViolationCount)
}

func TestDebugGraphCountsVerticesAndEdges(t *testing.T) {
	d := sampleStore().DebugGraph()
	assert.Greater(t, d.VertexCountByLabel["Function"], 0)
	assert.Greater(t, d.EdgeCountByType["CALLS"], 0)
}

func TestSemanticSearchMatchesQualifiedName(t *testing.T) {
	rows := sampleStore().SemanticSearch("run", 0)
	var names []string
	for _, r := range rows {
		names = append(names, r.QualifiedName)
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "test_run")
}
