package index_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/index"
	"crateindex/internal/model"
)

func sampleSymbols() *model.ParsedSymbols {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{Name: "new", QualifiedName: "Order::new", Crate: "orders", File: "orders/src/lib.rs", LineStart: 5, Visibility: model.VisibilityPublic},
	}
	ps.Types = []model.Type{
		{Name: "Order", QualifiedName: "Order", Crate: "orders", Kind: model.KindStruct, File: "orders/src/lib.rs", LineStart: 1, Visibility: model.VisibilityPublic},
	}
	return ps
}

func TestBuildIndexesOnlyPublicItems(t *testing.T) {
	ps := sampleSymbols()
	ps.Functions = append(ps.Functions, model.Function{Name: "hidden", Crate: "orders", Visibility: model.VisibilityPrivate})

	idx := index.Build(ps)
	ce, ok := idx.GetCrateExports("orders")
	require.True(t, ok)
	assert.Contains(t, ce.Functions, "new")
	assert.NotContains(t, ce.Functions, "hidden")
}

func TestResolveAssociatedFunctionSingleCrate(t *testing.T) {
	idx := index.Build(sampleSymbols())
	loc, ok := idx.ResolveAssociatedFunction("Order", "new")
	require.True(t, ok)
	assert.Equal(t, "Order::new", loc.QualifiedName)
}

func TestResolveAssociatedFunctionAmbiguousAcrossCrates(t *testing.T) {
	ps := sampleSymbols()
	ps.Functions = append(ps.Functions, model.Function{Name: "new", QualifiedName: "Order::new", Crate: "orders2", Visibility: model.VisibilityPublic})
	ps.Types = append(ps.Types, model.Type{Name: "Order", QualifiedName: "Order", Crate: "orders2", Kind: model.KindStruct, Visibility: model.VisibilityPublic})

	idx := index.Build(ps)
	_, ok := idx.ResolveAssociatedFunction("Order", "new")
	assert.False(t, ok)
}

func TestEncodeDecodeRoundTrips(t *testing.T) {
	idx := index.Build(sampleSymbols())
	data := index.Encode(idx)
	decoded, err := index.Decode(data)
	require.NoError(t, err)

	ce, ok := decoded.GetCrateExports("orders")
	require.True(t, ok)
	assert.Equal(t, "Order::new", ce.Functions["new"].QualifiedName)
}

func TestDecodeRejectsCorruptData(t *testing.T) {
	_, err := index.Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestSaveAndLoadCompressedRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.zst")

	idx := index.Build(sampleSymbols())
	require.NoError(t, index.SaveCompressed(idx, path))

	loaded, err := index.LoadCompressed(path)
	require.NoError(t, err)
	ce, ok := loaded.GetCrateExports("orders")
	require.True(t, ok)
	assert.Contains(t, ce.Types, "Order")
}

func TestCacheValidityRespectsManifestMtime(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "Cargo.toml")
	require.NoError(t, os.WriteFile(manifest, []byte("old"), 0o644))

	cachePath := filepath.Join(dir, "cache.zst")
	require.NoError(t, index.SaveToCache(index.New(), cachePath))

	assert.True(t, index.IsCacheValid(cachePath, []string{manifest}))

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(manifest, []byte("new"), 0o644))
	assert.False(t, index.IsCacheValid(cachePath, []string{manifest}))
}
