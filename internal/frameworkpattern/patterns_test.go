package frameworkpattern_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/frameworkpattern"
	"crateindex/internal/model"
)

func TestValidatePatternComplexityRejectsCatastrophicShapes(t *testing.T) {
	_, err := frameworkpattern.Compile(
		[]frameworkpattern.RawRule{{Name: "bad", Regex: "(.*)+", Extra: "main"}},
		nil, nil, nil,
	)
	require.Error(t, err)
}

func TestValidatePatternComplexityRejectsOverlongPattern(t *testing.T) {
	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}
	_, err := frameworkpattern.Compile(
		[]frameworkpattern.RawRule{{Name: "bad", Regex: string(long), Extra: "main"}},
		nil, nil, nil,
	)
	require.Error(t, err)
}

func TestDefaultPatternsFindTokioMainAndSpawn(t *testing.T) {
	p := frameworkpattern.Default()
	src := `
#[tokio::main]
async fn main() {
    kameo::spawn(Worker::new());
}
`
	entries := frameworkpattern.FindEntryPoints(p, src)
	assert.NotEmpty(t, entries[frameworkpattern.EntryPointAsyncRuntime])

	calls := frameworkpattern.FindRuntimeCalls(p, src)
	assert.NotEmpty(t, calls[frameworkpattern.RuntimeCallSpawn])
}

func TestSummarizeCountsActorPatterns(t *testing.T) {
	p := frameworkpattern.Default()
	src := "#[kameo(remote)]\nlet r: ActorRef<Worker> = spawn();"
	stats := frameworkpattern.Summarize(p, src)
	assert.Equal(t, 1, stats.Actors)
}

func TestSynthesizeAddsDispatcherAndEdgeForEntryPoint(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{ID: "app:main:1", Name: "main", QualifiedName: "main", Crate: "app", File: "app/src/main.rs", LineStart: 1, LineEnd: 4},
	}
	sources := map[string]string{
		"app/src/main.rs": "#[tokio::main]\nasync fn main() {\n    kameo::spawn(Worker::new());\n}\n",
	}

	frameworkpattern.Synthesize(ps, sources, frameworkpattern.Default())

	dispatcher, ok := ps.FunctionByID("app:<entry-point>::async-runtime:0")
	require.True(t, ok)
	assert.Equal(t, "<synthetic>", dispatcher.File)
	assert.Equal(t, 0, dispatcher.LineStart)

	var found bool
	for _, c := range ps.Calls {
		if c.QualifiedCallee != nil && *c.QualifiedCallee == "<entry-point>::async-runtime" {
			found = true
			assert.True(t, c.IsSynthetic)
			assert.Equal(t, 0.90, c.SyntheticConfidence)
		}
	}
	assert.True(t, found)
}

func TestSynthesizeIsIdempotent(t *testing.T) {
	ps := model.NewParsedSymbols()
	ps.Functions = []model.Function{
		{ID: "app:main:1", Name: "main", QualifiedName: "main", Crate: "app", File: "app/src/main.rs", LineStart: 1, LineEnd: 4},
	}
	sources := map[string]string{
		"app/src/main.rs": "#[tokio::main]\nasync fn main() {\n    kameo::spawn(Worker::new());\n}\n",
	}

	p := frameworkpattern.Default()
	frameworkpattern.Synthesize(ps, sources, p)
	firstCount := len(ps.Calls)
	frameworkpattern.Synthesize(ps, sources, p)

	assert.Len(t, ps.Calls, firstCount)
}

func TestSynthesizeSkipsFilesWithNoKnownCrate(t *testing.T) {
	ps := model.NewParsedSymbols()
	sources := map[string]string{"unrelated/src/lib.rs": "#[tokio::main]\nfn main() {}\n"}

	frameworkpattern.Synthesize(ps, sources, frameworkpattern.Default())

	assert.Empty(t, ps.Calls)
	assert.Empty(t, ps.Functions)
}
