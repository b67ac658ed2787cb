package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"crateindex/internal/errs"
)

// StorageMode controls whether a populate pass merges into existing
// data or replaces it outright.
type StorageMode string

const (
	StorageModeMerge     StorageMode = "merge"
	StorageModeOverwrite StorageMode = "overwrite"
)

// DefaultBatchSize is the number of rows sent per UNWIND batch, per
// SPEC_FULL.md §4.7.
const DefaultBatchSize = 1000

// Config configures a MemgraphExporter.
type Config struct {
	URI       string
	Username  string
	Password  string
	BatchSize int
}

// MemgraphExporter writes a projected Graph to a Memgraph instance over
// Bolt, using parameterized queries exclusively — no string-built
// Cypher ever carries untrusted data (§6.2, §7).
type MemgraphExporter struct {
	driver    neo4j.DriverWithContext
	batchSize int
	mode      StorageMode
	log       *zap.SugaredLogger
}

// NewMemgraphExporter opens (but does not yet verify) a driver
// connection for cfg.
func NewMemgraphExporter(cfg Config, log *zap.SugaredLogger) (*MemgraphExporter, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.GraphFatal, err)
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &MemgraphExporter{driver: driver, batchSize: batch, mode: StorageModeMerge, log: log}, nil
}

// Close releases the underlying driver.
func (e *MemgraphExporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// SetStorageMode switches between idempotent merge and full overwrite.
func (e *MemgraphExporter) SetStorageMode(mode StorageMode) { e.mode = mode }

// TestConnection verifies the driver can reach the store.
func (e *MemgraphExporter) TestConnection(ctx context.Context) error {
	if err := e.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %v", errs.GraphTransient, err)
	}
	return nil
}

// ClearWorkspace deletes every node and relationship. Used before an
// StorageModeOverwrite pass, and by tests.
func (e *MemgraphExporter) ClearWorkspace(ctx context.Context) error {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	_, err := session.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
	if err != nil {
		return fmt.Errorf("%w: clear workspace: %v", errs.GraphTransient, err)
	}
	return nil
}

// CreateCrateNodes upserts only the Crate vertices of g, ahead of a
// full populate pass — crate nodes need to exist before membership
// edges reference them, and creating them separately lets a caller
// render workspace structure before the (larger) symbol population
// completes.
func (e *MemgraphExporter) CreateCrateNodes(ctx context.Context, g *Graph) error {
	var crates []Vertex
	for _, v := range g.Vertices {
		if len(v.Labels) == 1 && v.Labels[0] == "Crate" {
			crates = append(crates, v)
		}
	}
	return e.upsertVertices(ctx, crates)
}

// PopulateFromSymbols upserts every vertex and edge in g, batched at
// e.batchSize rows per query (§4.7 "Batched writes").
func (e *MemgraphExporter) PopulateFromSymbols(ctx context.Context, g *Graph) error {
	if e.mode == StorageModeOverwrite {
		if err := e.ClearWorkspace(ctx); err != nil {
			return err
		}
	}
	if err := e.upsertVertices(ctx, g.Vertices); err != nil {
		return err
	}
	return e.upsertEdges(ctx, g.Edges)
}

// VerifyPopulation reports whether the store's vertex count matches
// what was just written, as a cheap post-write sanity check.
func (e *MemgraphExporter) VerifyPopulation(ctx context.Context, expectedVertices int) (bool, error) {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	result, err := session.Run(ctx, "MATCH (n) RETURN count(n) AS c", nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.GraphTransient, err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.GraphTransient, err)
	}
	count, ok := record.Get("c")
	if !ok {
		return false, fmt.Errorf("%w: count field missing", errs.GraphTransient)
	}
	n, ok := count.(int64)
	if !ok {
		return false, fmt.Errorf("%w: unexpected count type", errs.GraphTransient)
	}
	return n == int64(expectedVertices), nil
}

// ExecuteQuery runs an arbitrary parameterized read query, for the
// debug/introspection surface of §6.4 (debug_graph, semantic_search).
func (e *MemgraphExporter) ExecuteQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.GraphTransient, err)
	}
	var rows []map[string]any
	for result.Next(ctx) {
		record := result.Record()
		row := map[string]any{}
		for i, key := range record.Keys {
			row[key] = record.Values[i]
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.GraphTransient, err)
	}
	return rows, nil
}

func (e *MemgraphExporter) upsertVertices(ctx context.Context, vertices []Vertex) error {
	byLabels := map[string][]Vertex{}
	for _, v := range vertices {
		key := strings.Join(v.Labels, ":")
		byLabels[key] = append(byLabels[key], v)
	}
	for labelKey, group := range byLabels {
		cypher := fmt.Sprintf(
			"UNWIND $rows AS row MERGE (n:%s {id: row.id}) SET n += row.props",
			labelKey,
		)
		for _, batch := range chunkVertices(group, e.batchSize) {
			rows := make([]map[string]any, len(batch))
			for i, v := range batch {
				rows[i] = map[string]any{"id": v.ID, "props": v.Properties}
			}
			if err := e.run(ctx, cypher, map[string]any{"rows": rows}); err != nil {
				return fmt.Errorf("upsert vertices (%s): %w", labelKey, err)
			}
		}
	}
	return nil
}

func (e *MemgraphExporter) upsertEdges(ctx context.Context, edges []Edge) error {
	byType := map[string][]Edge{}
	for _, ed := range edges {
		byType[ed.Type] = append(byType[ed.Type], ed)
	}
	for edgeType, group := range byType {
		cypher := fmt.Sprintf(
			"UNWIND $rows AS row MATCH (a {id: row.from}), (b {id: row.to}) MERGE (a)-[r:%s]->(b) SET r += row.props",
			edgeType,
		)
		for _, batch := range chunkEdges(group, e.batchSize) {
			rows := make([]map[string]any, len(batch))
			for i, ed := range batch {
				rows[i] = map[string]any{"from": ed.From, "to": ed.To, "props": ed.Properties}
			}
			if err := e.run(ctx, cypher, map[string]any{"rows": rows}); err != nil {
				return fmt.Errorf("upsert edges (%s): %w", edgeType, err)
			}
		}
	}
	return nil
}

func (e *MemgraphExporter) run(ctx context.Context, cypher string, params map[string]any) error {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)
	_, err := session.Run(ctx, cypher, params)
	if err != nil {
		e.log.Warnw("graph write failed", "error", err)
		return fmt.Errorf("%w: %v", errs.GraphTransient, err)
	}
	return nil
}

func chunkVertices(v []Vertex, size int) [][]Vertex {
	if len(v) == 0 {
		return nil
	}
	var out [][]Vertex
	for size < len(v) {
		v, out = v[size:], append(out, v[0:size:size])
	}
	return append(out, v)
}

func chunkEdges(e []Edge, size int) [][]Edge {
	if len(e) == 0 {
		return nil
	}
	var out [][]Edge
	for size < len(e) {
		e, out = e[size:], append(out, e[0:size:size])
	}
	return append(out, e)
}
