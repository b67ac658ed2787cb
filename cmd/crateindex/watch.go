package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"crateindex/internal/incremental"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the workspace and re-analyze on content changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		roots := cfg.AllWorkspaceRoots()
		statePath := filepath.Join(roots[0], ".crateindex", "incremental-state.yaml")
		state := incremental.LoadOrFresh(statePath, log)

		w, err := incremental.New(roots, log)
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer w.Close()

		ctx := cmd.Context()
		events := w.Run(ctx, watchDebounce)

		log.Infow("watching for changes", "roots", roots)
		if _, err := runPipeline(ctx, cfg); err != nil {
			return err
		}

		for batch := range events {
			if !anyContentChanged(batch, state) {
				continue
			}
			log.Infow("change detected, re-analyzing", "files", len(batch))
			if _, err := runPipeline(ctx, cfg); err != nil {
				log.Warnw("re-analysis failed", "error", err)
				continue
			}
			if err := state.Save(statePath); err != nil {
				log.Warnw("incremental state save failed", "path", statePath, "error", err)
			}
		}
		return ctx.Err()
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "quiet period before a batch of changes triggers re-analysis")
}

// anyContentChanged hashes every changed file in batch and records its
// new state, returning true if at least one file's content actually
// differs from what was last recorded — a touch with no content
// change (a rebuild tool bumping mtimes) should not trigger a
// re-analysis.
func anyContentChanged(batch []incremental.ChangeEvent, state *incremental.State) bool {
	changed := false
	for _, ev := range batch {
		data, err := os.ReadFile(ev.Path)
		if err != nil {
			state.Delete(ev.Path)
			changed = true
			continue
		}
		hash, err := incremental.ContentHash(data)
		if err != nil {
			continue
		}
		if state.Changed(ev.Path, hash) {
			changed = true
		}
		state.Record(ev.Path, hash, time.Now(), nil, nil)
	}
	return changed
}
