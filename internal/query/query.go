// Package query implements the read-only operations of SPEC_FULL.md
// §6.4's CLI surface as plain Go functions over an in-memory symbol
// set. It is grounded in original_source/src/mcp/server.rs's tool
// dispatch table, minus the request/response server itself (that
// transport is an explicit Non-goal — only the data each tool needs
// is in core scope).
package query

import (
	"sort"
	"strings"

	"crateindex/internal/architecture"
	"crateindex/internal/graph"
	"crateindex/internal/index"
	"crateindex/internal/model"
)

// Store bundles the data every query operation reads: the merged
// symbol set, the built graph, the global index, and any architecture
// violations already computed for this build.
type Store struct {
	Symbols    *model.ParsedSymbols
	Graph      *graph.Graph
	Index      *index.GlobalSymbolIndex
	Violations []architecture.Violation
}

// CrateOverview is the get_crate_overview result: one summary row per
// crate.
type CrateOverview struct {
	Name          string
	Layer         string
	IsExternal    bool
	FunctionCount int
	TypeCount     int
	ActorCount    int
}

// GetCrateOverview summarizes every crate in the symbol set.
func (s *Store) GetCrateOverview() []CrateOverview {
	byName := map[string]*CrateOverview{}
	order := []string{}
	get := func(name, layer string, external bool) *CrateOverview {
		if o, ok := byName[name]; ok {
			return o
		}
		o := &CrateOverview{Name: name, Layer: layer, IsExternal: external}
		byName[name] = o
		order = append(order, name)
		return o
	}
	for _, c := range s.Symbols.Crates {
		get(c.Name, c.Layer, c.IsExternal)
	}
	for _, f := range s.Symbols.Functions {
		get(f.Crate, "", false).FunctionCount++
	}
	actorTypes := map[string]bool{}
	for _, a := range s.Symbols.Actors {
		actorTypes[a.ID] = true
	}
	for _, t := range s.Symbols.Types {
		o := get(t.Crate, "", false)
		o.TypeCount++
		if actorTypes[t.ID] {
			o.ActorCount++
		}
	}
	sort.Strings(order)
	out := make([]CrateOverview, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}

// FunctionSummary is the row shape for list_functions and the
// unreferenced/test-only/untested filters.
type FunctionSummary struct {
	ID            string
	QualifiedName string
	Crate         string
	File          string
	Line          int
	IsTest        bool
}

func summarize(f model.Function) FunctionSummary {
	return FunctionSummary{
		ID:            f.ID,
		QualifiedName: f.QualifiedName,
		Crate:         f.Crate,
		File:          f.File,
		Line:          f.LineStart,
		IsTest:        f.IsTest,
	}
}

// ListFunctions implements list_functions(search, limit): a
// case-insensitive substring match over the qualified name, capped at
// limit (0 or negative means unlimited).
func (s *Store) ListFunctions(search string, limit int) []FunctionSummary {
	search = strings.ToLower(search)
	var out []FunctionSummary
	for _, f := range s.Symbols.Functions {
		if search != "" && !strings.Contains(strings.ToLower(f.QualifiedName), search) {
			continue
		}
		out = append(out, summarize(f))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// FindUnreferencedFunctions implements find_unreferenced_functions:
// every non-test function whose qualified name is never the resolved
// or synthetic target of a Call and that matches none of filters
// (substrings of the qualified name or file). Impl and trait methods
// reachable only through dynamic dispatch are not excluded; this only
// reports what the call graph itself shows as unreached.
func (s *Store) FindUnreferencedFunctions(filters []string) []FunctionSummary {
	called := map[string]bool{}
	for _, c := range s.Symbols.Calls {
		if c.QualifiedCallee != nil {
			called[*c.QualifiedCallee] = true
		}
	}
	var out []FunctionSummary
	for _, f := range s.Symbols.Functions {
		if f.IsTest {
			continue
		}
		if called[f.QualifiedName] {
			continue
		}
		if matchesExclusionFilter(f, filters) {
			continue
		}
		out = append(out, summarize(f))
	}
	return out
}

func matchesExclusionFilter(f model.Function, filters []string) bool {
	for _, filt := range filters {
		if filt == "" {
			continue
		}
		if strings.Contains(f.QualifiedName, filt) || strings.Contains(f.File, filt) {
			return true
		}
	}
	return false
}

// FindTestOnlyFunctions implements find_test_only_functions: functions
// that are only ever called from test functions.
func (s *Store) FindTestOnlyFunctions() []FunctionSummary {
	testFn := map[string]bool{}
	for _, f := range s.Symbols.Functions {
		if f.IsTest {
			testFn[f.ID] = true
		}
	}
	callers := map[string]map[string]bool{} // callee qualified name -> set of caller ids
	for _, c := range s.Symbols.Calls {
		if c.QualifiedCallee == nil {
			continue
		}
		if callers[*c.QualifiedCallee] == nil {
			callers[*c.QualifiedCallee] = map[string]bool{}
		}
		callers[*c.QualifiedCallee][c.CallerID] = true
	}
	var out []FunctionSummary
	for _, f := range s.Symbols.Functions {
		if f.IsTest {
			continue
		}
		cs, ok := callers[f.QualifiedName]
		if !ok || len(cs) == 0 {
			continue
		}
		allFromTests := true
		for callerID := range cs {
			if !testFn[callerID] {
				allFromTests = false
				break
			}
		}
		if allFromTests {
			out = append(out, summarize(f))
		}
	}
	return out
}

// FindFunctionsWithoutTests implements find_functions_without_tests: a
// coarse heuristic since there is no test-attribution link in the
// symbol model beyond the Function.IsTest flag itself — a public
// function is reported if no call made by a test function, in any
// crate, resolves to its qualified name.
func (s *Store) FindFunctionsWithoutTests() []FunctionSummary {
	testFn := map[string]bool{}
	for _, f := range s.Symbols.Functions {
		if f.IsTest {
			testFn[f.ID] = true
		}
	}
	referencedByTest := map[string]bool{}
	for _, c := range s.Symbols.Calls {
		if c.QualifiedCallee == nil || !testFn[c.CallerID] {
			continue
		}
		referencedByTest[*c.QualifiedCallee] = true
	}
	var out []FunctionSummary
	for _, f := range s.Symbols.Functions {
		if f.IsTest || f.Visibility != model.VisibilityPublic {
			continue
		}
		if !referencedByTest[f.QualifiedName] {
			out = append(out, summarize(f))
		}
	}
	return out
}

// FunctionDetails is the get_function_details result.
type FunctionDetails struct {
	model.Function
	Callers []string
	Callees []string
}

// GetFunctionDetails implements get_function_details.
func (s *Store) GetFunctionDetails(id string) (FunctionDetails, bool) {
	f, ok := s.Symbols.FunctionByID(id)
	if !ok {
		return FunctionDetails{}, false
	}
	d := FunctionDetails{Function: *f}
	for _, c := range s.Symbols.Calls {
		if c.CallerID == id {
			callee := c.CalleeName
			if c.QualifiedCallee != nil {
				callee = *c.QualifiedCallee
			}
			d.Callees = append(d.Callees, callee)
		}
		if c.QualifiedCallee != nil && *c.QualifiedCallee == f.QualifiedName {
			d.Callers = append(d.Callers, c.CallerID)
		}
	}
	return d, true
}

// TypeDetails is the get_type_details result.
type TypeDetails struct {
	model.Type
	IsActor bool
}

// GetTypeDetails implements get_type_details.
func (s *Store) GetTypeDetails(id string) (TypeDetails, bool) {
	t, ok := s.Symbols.TypeByID(id)
	if !ok {
		return TypeDetails{}, false
	}
	d := TypeDetails{Type: *t}
	for _, a := range s.Symbols.Actors {
		if a.ID == id {
			d.IsActor = true
			break
		}
	}
	return d, true
}

// GetActorDetails implements get_actor_details(name): name matches
// either the actor's id or the underlying type's bare name.
func (s *Store) GetActorDetails(name string) (model.Actor, bool) {
	for _, a := range s.Symbols.Actors {
		if a.ID == name {
			return a, true
		}
	}
	for _, t := range s.Symbols.Types {
		if t.Name != name {
			continue
		}
		for _, a := range s.Symbols.Actors {
			if a.ID == t.ID {
				return a, true
			}
		}
	}
	return model.Actor{}, false
}

// GetDistributedActors implements get_distributed_actors.
func (s *Store) GetDistributedActors() []model.Actor {
	var out []model.Actor
	for _, a := range s.Symbols.Actors {
		if a.IsDistributed {
			out = append(out, a)
		}
	}
	return out
}

// SpawnEdge is one row of generate_actor_spawn_diagram.
type SpawnEdge struct {
	Parent  string
	Child   string
	Method  model.SpawnMethod
	Pattern model.SpawnPattern
}

// GenerateActorSpawnDiagram implements generate_actor_spawn_diagram: a
// flat edge list, left for the caller to render (DOT, mermaid,
// whatever the hosting tool prefers — rendering itself is out of
// core scope).
func (s *Store) GenerateActorSpawnDiagram() []SpawnEdge {
	out := make([]SpawnEdge, 0, len(s.Symbols.Spawns))
	for _, sp := range s.Symbols.Spawns {
		out = append(out, SpawnEdge{Parent: sp.Parent, Child: sp.Child, Method: sp.Method, Pattern: sp.Pattern})
	}
	return out
}

// MessageEdge is one row of generate_actor_message_diagram.
type MessageEdge struct {
	Sender  string
	Target  string
	Message string
	Method  model.SendMethod
}

// GenerateActorMessageDiagram implements generate_actor_message_diagram.
func (s *Store) GenerateActorMessageDiagram() []MessageEdge {
	out := make([]MessageEdge, 0, len(s.Symbols.Sends))
	for _, m := range s.Symbols.Sends {
		out = append(out, MessageEdge{Sender: m.Sender, Target: m.Target, Message: m.Message, Method: m.Method})
	}
	return out
}

// LayerHealth is one row of get_layer_health.
type LayerHealth struct {
	Layer          string
	CrateCount     int
	ViolationCount int
}

// GetLayerHealth implements get_layer_health: per-layer crate counts
// and how many outbound violations originate from crates in that
// layer.
func (s *Store) GetLayerHealth() []LayerHealth {
	byLayer := map[string]*LayerHealth{}
	order := []string{}
	get := func(layer string) *LayerHealth {
		if h, ok := byLayer[layer]; ok {
			return h
		}
		h := &LayerHealth{Layer: layer}
		byLayer[layer] = h
		order = append(order, layer)
		return h
	}
	for _, c := range s.Symbols.Crates {
		if c.Layer == "" {
			continue
		}
		get(c.Layer).CrateCount++
	}
	for _, v := range s.Violations {
		if v.FromLayer == "" {
			continue
		}
		get(v.FromLayer).ViolationCount++
	}
	sort.Strings(order)
	out := make([]LayerHealth, 0, len(order))
	for _, l := range order {
		out = append(out, *byLayer[l])
	}
	return out
}

// CheckArchitectureViolations implements check_architecture_violations
// (severity, limit): violations are already computed by
// internal/architecture.Check and stashed on the Store; this applies
// the severity filter and cap the CLI surface exposes.
func (s *Store) CheckArchitectureViolations(severity string, limit int) []architecture.Violation {
	var out []architecture.Violation
	for _, v := range s.Violations {
		if severity != "" && string(v.Severity) != severity {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// DebugGraph implements debug_graph: raw vertex/edge counts by label
// and type, the shape an operator actually wants when the graph looks
// wrong.
type DebugGraph struct {
	VertexCountByLabel map[string]int
	EdgeCountByType    map[string]int
}

// DebugGraph summarizes the projected graph.
func (s *Store) DebugGraph() DebugGraph {
	d := DebugGraph{VertexCountByLabel: map[string]int{}, EdgeCountByType: map[string]int{}}
	if s.Graph == nil {
		return d
	}
	for _, v := range s.Graph.Vertices {
		for _, l := range v.Labels {
			d.VertexCountByLabel[l]++
		}
	}
	for _, e := range s.Graph.Edges {
		d.EdgeCountByType[e.Type]++
	}
	return d
}

// SemanticSearch implements semantic_search(query, limit) as a
// deterministic substring match over qualified names and doc comments
// — embedding generation itself is a named Non-goal (§4.9); this is
// the text-only fallback a caller without an embedding collaborator
// still gets.
func (s *Store) SemanticSearch(query string, limit int) []FunctionSummary {
	query = strings.ToLower(query)
	var out []FunctionSummary
	for _, f := range s.Symbols.Functions {
		if !strings.Contains(strings.ToLower(f.QualifiedName), query) &&
			!strings.Contains(strings.ToLower(f.Doc), query) {
			continue
		}
		out = append(out, summarize(f))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
