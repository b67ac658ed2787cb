package main

import (
	"context"
	"fmt"

	"crateindex/internal/config"
	"crateindex/internal/discover"
	"crateindex/internal/pipeline"
	"crateindex/internal/query"
)

// loadConfig resolves the effective configuration for a command,
// honoring --config when set.
func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}

// runPipeline builds and executes a Pipeline over cfg's workspace
// roots, logging every warning it collects along the way.
func runPipeline(ctx context.Context, cfg config.Config) (*pipeline.Result, error) {
	p := pipeline.New(
		pipeline.WithLogger(log),
		pipeline.WithDiscoverOptions(discover.Options{
			ExcludePatterns: cfg.Analysis.ExcludeCrates,
		}),
		pipeline.WithLayers(cfg.ArchitecturePolicy()),
		pipeline.WithMaxParallel(cfg.Performance.MaxThreads),
	)
	result, err := p.Run(ctx, cfg.AllWorkspaceRoots())
	if err != nil {
		return nil, fmt.Errorf("running pipeline: %w", err)
	}
	for _, w := range result.Warnings {
		log.Warnw("pipeline warning", "error", w)
	}
	return result, nil
}

// storeFrom adapts a pipeline Result into a query.Store.
func storeFrom(result *pipeline.Result) *query.Store {
	return &query.Store{
		Symbols:    result.Symbols,
		Graph:      result.Graph,
		Index:      result.Index,
		Violations: result.Violations,
	}
}
