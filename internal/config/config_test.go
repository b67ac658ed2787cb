package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/config"
	"crateindex/internal/errs"
)

func TestLoadWithNoFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Workspace.Root)
	assert.Equal(t, "bolt://localhost:7687", cfg.Memgraph.URI)
	assert.Equal(t, 1000, cfg.Memgraph.BatchSize)
	assert.True(t, cfg.CrossCrate.Enabled)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crateindex.yaml")
	body := "workspace:\n  root: /srv/workspace\nmemgraph:\n  uri: bolt://graph:7687\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/workspace", cfg.Workspace.Root)
	assert.Equal(t, "bolt://graph:7687", cfg.Memgraph.URI)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1000, cfg.Memgraph.BatchSize)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ConfigError))
}

func TestAllWorkspaceRootsIncludesAdditional(t *testing.T) {
	cfg := config.Default()
	cfg.Workspace.AdditionalRoots = []string{"../sibling"}
	assert.Equal(t, []string{".", "../sibling"}, cfg.AllWorkspaceRoots())
}
