package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/pipeline"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunDiscoversParsesAndProjectsSingleCrate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Cargo.toml"), `
[package]
name = "app"
version = "0.1.0"
`)
	writeFile(t, filepath.Join(root, "src/lib.rs"), `
struct Worker;

impl Worker {
    fn new() -> Worker {
        Worker
    }
}

fn run() {
    let w = Worker::new();
}
`)

	p := pipeline.New()
	result, err := p.Run(context.Background(), []string{root})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.Symbols.Functions)
	assert.NotEmpty(t, result.Symbols.Types)
	assert.NotNil(t, result.Graph)
	assert.NotNil(t, result.Index)
	require.NoError(t, result.Symbols.Validate())
}

func TestRunDegradesOnMissingManifest(t *testing.T) {
	root := t.TempDir()
	p := pipeline.New()
	result, err := p.Run(context.Background(), []string{root})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warnings)
}
