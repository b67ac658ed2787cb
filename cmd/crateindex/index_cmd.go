package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"crateindex/internal/config"
	"crateindex/internal/graph"
	"crateindex/internal/index"
)

var pushToMemgraph bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the global symbol index, persist its cache, and optionally populate Memgraph",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		result, err := runPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		if cfg.CrossCrate.UseCache {
			cachePath := cfg.CrossCrate.GlobalIndexPath
			if cachePath == "" {
				cachePath = index.DefaultCachePath(cfg.Workspace.Root)
			}
			if err := index.SaveToCache(result.Index, cachePath); err != nil {
				log.Warnw("index cache write failed", "path", cachePath, "error", err)
			}
		}

		stats := result.Index.ComputeStats()
		fmt.Printf("indexed crates: %d\nindexed functions: %d\nindexed types: %d\nindexed traits: %d\n",
			stats.Crates, stats.Functions, stats.Types, stats.Traits)

		if !pushToMemgraph {
			return nil
		}
		return populateMemgraph(cmd.Context(), cfg, result.Graph)
	},
}

func init() {
	indexCmd.Flags().BoolVar(&pushToMemgraph, "push", false, "also populate the configured Memgraph instance")
}

// populateMemgraph opens a connection using cfg.Memgraph and upserts
// g into it, clearing prior data first when clean_start is set.
func populateMemgraph(ctx context.Context, cfg config.Config, g *graph.Graph) error {
	exp, err := graph.NewMemgraphExporter(graph.Config{
		URI:       cfg.Memgraph.URI,
		Username:  cfg.Memgraph.Username,
		Password:  cfg.Memgraph.Password,
		BatchSize: cfg.Memgraph.BatchSize,
	}, log)
	if err != nil {
		return err
	}
	defer exp.Close(ctx)

	if cfg.Memgraph.CleanStart {
		if err := exp.ClearWorkspace(ctx); err != nil {
			return err
		}
	}
	if err := exp.CreateCrateNodes(ctx, g); err != nil {
		return err
	}
	return exp.PopulateFromSymbols(ctx, g)
}
