package parse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateindex/internal/parse"
)

func TestParseFileExtractsFunctionsAndTypes(t *testing.T) {
	src := []byte(`
pub struct Order {
    pub id: u64,
    qty: u32,
}

impl Order {
    pub fn new(id: u64) -> Self {
        Self { id, qty: 0 }
    }

    fn total(&self) -> u32 {
        self.qty
    }
}
`)
	p := parse.New()
	out, err := p.ParseFile(context.Background(), "orders", "orders/src/lib.rs", src)
	require.NoError(t, err)

	require.Len(t, out.Types, 1)
	assert.Equal(t, "Order", out.Types[0].Name)
	assert.Len(t, out.Types[0].Fields, 2)

	require.Len(t, out.Impls, 1)
	assert.Equal(t, "Order", out.Impls[0].TypeName)
	assert.Empty(t, out.Impls[0].TraitName)
	assert.Len(t, out.Impls[0].Methods, 2)

	var names []string
	for _, fn := range out.Functions {
		names = append(names, fn.Name)
	}
	assert.Contains(t, names, "new")
	assert.Contains(t, names, "total")
}

func TestParseFileRecognizesActorImpl(t *testing.T) {
	src := []byte(`
struct Supervisor;

impl Actor for Supervisor {
    fn name() -> &'static str {
        "Supervisor"
    }
}
`)
	p := parse.New()
	out, err := p.ParseFile(context.Background(), "svc", "svc/src/actor.rs", src)
	require.NoError(t, err)

	require.Len(t, out.Actors, 1)
	assert.Equal(t, "basic", string(out.Actors[0].Kind))
}

func TestParseFileRecordsSpawnAndSend(t *testing.T) {
	src := []byte(`
fn start() {
    let actor_ref = Worker::spawn(Worker::new());
    actor_ref.tell(Ping {});
}
`)
	p := parse.New()
	out, err := p.ParseFile(context.Background(), "svc", "svc/src/main.rs", src)
	require.NoError(t, err)

	require.Len(t, out.Spawns, 1)
	assert.Equal(t, "direct-type", string(out.Spawns[0].Pattern))

	require.Len(t, out.Sends, 1)
	assert.Equal(t, "tell", string(out.Sends[0].Method))
}

func TestParseFileRecordsMacroInvocationWithoutExpanding(t *testing.T) {
	src := []byte(`
define_indicator_enums!(RSI: "Relative Strength Index");
`)
	p := parse.New()
	out, err := p.ParseFile(context.Background(), "indicators", "indicators/src/lib.rs", src)
	require.NoError(t, err)

	require.Len(t, out.MacroExpansions, 1)
	assert.Equal(t, "define_indicator_enums", out.MacroExpansions[0].Name)
	assert.Equal(t, "custom", string(out.MacroExpansions[0].Kind))
}

func TestParseFileToleratesSyntaxErrors(t *testing.T) {
	src := []byte(`fn broken( {{{`)
	p := parse.New()
	out, err := p.ParseFile(context.Background(), "bad", "bad/src/lib.rs", src)
	require.NoError(t, err)
	assert.NotNil(t, out)
}
