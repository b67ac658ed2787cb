package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func withTempWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "Cargo.toml"), "[package]\nname = \"app\"\nversion = \"0.1.0\"\n")
	writeTestFile(t, filepath.Join(root, "src/lib.rs"), "fn run() {}\n")
	return root
}

func withRootCmdContext(t *testing.T) {
	t.Helper()
	log = zap.NewNop().Sugar()
	cfgFile = ""
}

func TestAnalyzeCmdPrintsSummary(t *testing.T) {
	withRootCmdContext(t)
	root := withTempWorkspace(t)

	configPath := filepath.Join(root, "crateindex.yaml")
	writeTestFile(t, configPath, "workspace:\n  root: "+root+"\n")
	cfgFile = configPath
	defer func() { cfgFile = "" }()

	cmd := analyzeCmd
	cmd.SetContext(context.Background())
	require.NoError(t, cmd.RunE(cmd, nil))
}

func TestIndexCmdBuildsIndex(t *testing.T) {
	withRootCmdContext(t)
	root := withTempWorkspace(t)

	configPath := filepath.Join(root, "crateindex.yaml")
	writeTestFile(t, configPath, "workspace:\n  root: "+root+"\ncross_crate:\n  use_cache: false\n")
	cfgFile = configPath
	defer func() { cfgFile = "" }()

	cmd := indexCmd
	cmd.SetContext(context.Background())
	require.NoError(t, cmd.RunE(cmd, nil))
}
