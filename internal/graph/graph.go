// Package graph projects a merged symbol set into the labeled property
// graph of SPEC_FULL.md §4.7 and writes it to a Memgraph-compatible
// store over Bolt. Projection (this file) is pure and has no I/O;
// internal/graph/memgraph.go does the actual writing.
package graph

import (
	"fmt"

	"crateindex/internal/architecture"
	"crateindex/internal/index"
	"crateindex/internal/model"
)

// Vertex is one labeled property-graph node. Dual labeling (e.g. a
// type that is also an actor carries both "Type" and "Actor") is
// expressed as multiple entries in Labels, never as separate vertices
// (§3.2.5 actor identity invariant).
type Vertex struct {
	ID         string
	Labels     []string
	Properties map[string]any
}

// Edge is one directed, labeled relationship between two vertex ids.
type Edge struct {
	From       string
	To         string
	Type       string
	Properties map[string]any
}

// Graph is the full projected property graph for one build.
type Graph struct {
	Vertices []Vertex
	Edges    []Edge
}

// upsertKey is exposed so the exporter can build a MERGE query keyed
// on a stable identity rather than re-deriving the convention.
func upsertKey(v Vertex) string { return v.ID }

// Build projects a merged ParsedSymbols set into a Graph. idx is not
// read: cross-crate resolution results are already on ps.Calls. It
// never talks to a store; callers pass the result to an Exporter.
func Build(ps *model.ParsedSymbols, idx *index.GlobalSymbolIndex) *Graph {
	g := &Graph{}

	actorByID := map[string]model.Actor{}
	for _, a := range ps.Actors {
		actorByID[a.ID] = a
	}

	for _, c := range ps.Crates {
		g.Vertices = append(g.Vertices, Vertex{
			ID:     "crate:" + c.Name,
			Labels: []string{"Crate"},
			Properties: map[string]any{
				"name":          c.Name,
				"version":       c.Version,
				"is_external":   c.IsExternal,
				"is_workspace":  c.IsWorkspaceMember,
				"layer":         c.Layer,
			},
		})
	}

	for _, t := range ps.Types {
		labels := []string{"Type"}
		if a, ok := actorByID[t.ID]; ok {
			labels = append(labels, "Actor")
			g.Vertices = append(g.Vertices, Vertex{
				ID:     t.ID,
				Labels: labels,
				Properties: map[string]any{
					"name":           t.Name,
					"qualified_name": t.QualifiedName,
					"crate":          t.Crate,
					"kind":           string(t.Kind),
					"file":           t.File,
					"line":           t.LineStart,
					"actor_kind":     string(a.Kind),
					"is_distributed": a.IsDistributed,
				},
			})
			continue
		}
		g.Vertices = append(g.Vertices, Vertex{
			ID:     t.ID,
			Labels: labels,
			Properties: map[string]any{
				"name":           t.Name,
				"qualified_name": t.QualifiedName,
				"crate":          t.Crate,
				"kind":           string(t.Kind),
				"file":           t.File,
				"line":           t.LineStart,
			},
		})
		g.Edges = append(g.Edges, membershipEdge(t.Crate, t.ID))
	}

	// An actor whose underlying type never surfaced as a Type record
	// (spawn-inferred from a receiver expression with no local
	// definition) still gets its own vertex, dual-labeled the same way,
	// per the one-shot migration note in SPEC_FULL.md §4: pre-existing
	// isolated Actor vertices are reconciled into this same shape rather
	// than left standalone.
	seenType := map[string]bool{}
	for _, t := range ps.Types {
		seenType[t.ID] = true
	}
	for id, a := range actorByID {
		if seenType[id] {
			continue
		}
		g.Vertices = append(g.Vertices, Vertex{
			ID:     id,
			Labels: []string{"Type", "Actor"},
			Properties: map[string]any{
				"actor_kind":     string(a.Kind),
				"is_distributed": a.IsDistributed,
			},
		})
	}

	for _, f := range ps.Functions {
		g.Vertices = append(g.Vertices, Vertex{
			ID:     f.ID,
			Labels: []string{"Function"},
			Properties: map[string]any{
				"name":           f.Name,
				"qualified_name": f.QualifiedName,
				"crate":          f.Crate,
				"file":           f.File,
				"line":           f.LineStart,
				"visibility":     string(f.Visibility),
				"is_async":       f.IsAsync,
				"is_test":        f.IsTest,
				"is_trait_impl":  f.IsTraitImpl,
			},
		})
		g.Edges = append(g.Edges, membershipEdge(f.Crate, f.ID))
	}

	for _, c := range ps.Calls {
		to := c.CalleeName
		if c.QualifiedCallee != nil {
			to = *c.QualifiedCallee
		}
		g.Edges = append(g.Edges, Edge{
			From: c.CallerID,
			To:   callTargetID(c, to),
			Type: "CALLS",
			Properties: map[string]any{
				"line":                 c.Line,
				"kind":                 string(c.Kind),
				"is_synthetic":         c.IsSynthetic,
				"synthetic_confidence": c.SyntheticConfidence,
				"macro_context":        c.MacroContext,
				"cross_crate":          c.CrossCrate(),
				"resolved":             c.QualifiedCallee != nil,
				"violates_architecture": false,
			},
		})
	}

	for _, s := range ps.Spawns {
		g.Edges = append(g.Edges, Edge{
			From: s.Parent,
			To:   s.Child,
			Type: "SPAWNS",
			Properties: map[string]any{
				"line":    s.Line,
				"method":  string(s.Method),
				"pattern": string(s.Pattern),
			},
		})
	}

	for _, m := range ps.Sends {
		g.Edges = append(g.Edges, Edge{
			From: m.Sender,
			To:   m.Target,
			Type: "SENDS",
			Properties: map[string]any{
				"line":    m.Line,
				"method":  string(m.Method),
				"message": m.Message,
			},
		})
	}

	return g
}

func membershipEdge(crate, memberID string) Edge {
	return Edge{From: "crate:" + crate, To: memberID, Type: "DECLARES"}
}

// callTargetID uses the qualified callee name when the reference
// resolver (or the global index) resolved it; otherwise the edge
// points at a synthetic placeholder vertex keyed by the bare name, so
// an unresolved call still shows up in the graph rather than being
// dropped.
func callTargetID(c model.Call, qualified string) string {
	if c.QualifiedCallee != nil {
		return fmt.Sprintf("%s:%s", crateOf(c), qualified)
	}
	return "unresolved:" + qualified
}

func crateOf(c model.Call) string {
	if c.ToCrate != nil {
		return *c.ToCrate
	}
	return c.FromCrate
}

// ApplyViolations tags the CALLS edges corresponding to each reported
// architecture violation with violates_architecture, violation_kind,
// and violation_severity. It matches edges back to violations by
// (caller, line) since that pair is unique per source call site; edges
// with no matching violation keep the "clean" default Build already
// set.
func ApplyViolations(g *Graph, violations []architecture.Violation) {
	byKey := map[string]architecture.Violation{}
	for _, v := range violations {
		byKey[violationKey(v.CallerID, v.Line)] = v
	}
	if len(byKey) == 0 {
		return
	}
	for i := range g.Edges {
		e := &g.Edges[i]
		if e.Type != "CALLS" {
			continue
		}
		line, _ := e.Properties["line"].(int)
		v, ok := byKey[violationKey(e.From, line)]
		if !ok {
			continue
		}
		e.Properties["violates_architecture"] = true
		e.Properties["violation_kind"] = string(v.Kind)
		e.Properties["violation_severity"] = string(v.Severity)
	}
}

func violationKey(callerID string, line int) string {
	return fmt.Sprintf("%s:%d", callerID, line)
}
