package incremental_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/incremental"
)

func TestContentHashIsStableAndDiscriminates(t *testing.T) {
	h1, err := incremental.ContentHash([]byte("fn main() {}"))
	require.NoError(t, err)
	h2, err := incremental.ContentHash([]byte("fn main() {}"))
	require.NoError(t, err)
	h3, err := incremental.ContentHash([]byte("fn main() { }"))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestLoadOrFreshHandlesMissingFile(t *testing.T) {
	s := incremental.LoadOrFresh(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Empty(t, s.Files)
}

func TestLoadOrFreshHandlesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0o644))
	s := incremental.LoadOrFresh(path, nil)
	assert.Empty(t, s.Files)
}

func TestSaveAndLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	s := incremental.LoadOrFresh(path, nil)
	hash, err := incremental.ContentHash([]byte("content"))
	require.NoError(t, err)
	s.Record("src/lib.rs", hash, time.Now(), []string{"foo"}, []string{"Bar"})

	require.NoError(t, s.Save(path))

	loaded := incremental.LoadOrFresh(path, nil)
	rec, ok := loaded.Files["src/lib.rs"]
	require.True(t, ok)
	assert.Equal(t, hash, rec.ContentHash)
	assert.False(t, loaded.Changed("src/lib.rs", hash))
	assert.True(t, loaded.Changed("src/lib.rs", hash+1))
}

func TestDeleteRemovesRecord(t *testing.T) {
	s := incremental.LoadOrFresh(filepath.Join(t.TempDir(), "state.yaml"), nil)
	s.Record("src/lib.rs", 1, time.Now(), nil, nil)
	s.Delete("src/lib.rs")
	assert.True(t, s.Changed("src/lib.rs", 1))
}
