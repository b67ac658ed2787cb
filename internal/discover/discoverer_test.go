package discover_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/discover"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(content), 0o644))
}

func TestDiscoverWorkspaceMembersAndPathDeps(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[package]
name = "app"
version = "0.1.0"

[dependencies]
core = { path = "crates/core" }
serde = "1.0"
`)
	writeManifest(t, filepath.Join(root, "crates/core"), `
[package]
name = "core"
version = "0.1.0"
`)

	d := discover.New(discover.Options{})
	crates, warnings := d.Discover([]string{root})
	assert.Empty(t, warnings)

	byName := map[string]bool{}
	for _, c := range crates {
		byName[c.Name] = c.IsExternal
	}
	require.Contains(t, byName, "app")
	require.Contains(t, byName, "core")
	require.Contains(t, byName, "serde")
	assert.False(t, byName["app"])
	assert.False(t, byName["core"])
	assert.True(t, byName["serde"])
}

func TestDiscoverMissingManifestDegradesGracefully(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	d := discover.New(discover.Options{})
	crates, warnings := d.Discover([]string{missing})
	assert.Empty(t, crates)
	require.Len(t, warnings, 1)
}

func TestExclusionGlob(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[package]
name = "app"

[dependencies]
internal-test-mock = "0.1"
serde = "1.0"
`)
	d := discover.New(discover.Options{ExcludePatterns: []string{"internal-*"}})
	crates, _ := d.Discover([]string{root})
	for _, c := range crates {
		assert.NotEqual(t, "internal-test-mock", c.Name)
	}
}
