package replay

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hexwars/replica/internal/engine"
	"github.com/hexwars/replica/internal/transport"
	"github.com/hexwars/replica/internal/world"
	"github.com/hexwars/replica/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.WithLogger(quiet))
	require.NoError(t, err)
	return e
}

func open(t *testing.T) *transport.FileSource {
	t.Helper()
	src, err := transport.OpenFile("testdata/duel.jsonl")
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

// prefix returns the first n lines of the duel session.
func prefix(t *testing.T, n int) string {
	t.Helper()
	src := open(t)
	var lines []string
	for range n {
		env, err := src.Next(context.Background())
		require.NoError(t, err)
		lines = append(lines, `{"type":"`+env.Type+`","payload":`+string(env.Payload)+`}`)
	}
	return strings.Join(lines, "\n") + "\n"
}

func stringSource(s string) transport.Source {
	return transport.NewFileSource(io.NopCloser(strings.NewReader(s)))
}

func TestRunDuel(t *testing.T) {
	e := newEngine(t)
	var kinds []core.EventKind
	e.Events().Subscribe(func(ev core.Event) { kinds = append(kinds, ev.Kind()) })

	st, err := New(e, WithLogger(quiet), WithStrict(true)).Run(context.Background(), open(t))
	require.NoError(t, err)

	assert.Equal(t, Stats{Envelopes: 8, Rules: 1, Snapshots: 1, Events: 5, Skipped: 2}, st)
	assert.Equal(t, []core.EventKind{
		core.KindGameData, core.KindMove, core.KindAttack, core.KindWait, core.KindEndTurn, core.KindBeginTurn,
	}, kinds)

	u1, err := e.Unit("u1")
	require.NoError(t, err)
	assert.Equal(t, "t2", u1.TileID)
	assert.False(t, u1.Moved)

	u2, err := e.Unit("u2")
	require.NoError(t, err)
	assert.Equal(t, 55, u2.Health)
	assert.Equal(t, 2, e.Info().InTurnNumber)
	assert.NotNil(t, e.Rules())
}

func TestRunStopsOnDivergence(t *testing.T) {
	session := prefix(t, 2) + `{"type":"event","payload":{"action":"wait","unit":"ghost"}}` + "\n" +
		`{"type":"event","payload":{"action":"wait","unit":"u1"}}` + "\n"

	st, err := New(newEngine(t), WithLogger(quiet)).Run(context.Background(), stringSource(session))
	require.Error(t, err)
	assert.ErrorIs(t, err, world.ErrNotFound)
	assert.Contains(t, err.Error(), "envelope 3 (event)")
	assert.Equal(t, 3, st.Envelopes)
	assert.Zero(t, st.Events)
}

func TestRunStrictCatchesInconsistency(t *testing.T) {
	// Moving onto an occupied tile leaves u1 on a tile that does not hold it.
	bad := `{"type":"event","payload":{"action":"move","unit":"u1","tile":"t3","path":[]}}` + "\n"
	session := prefix(t, 2) + bad

	_, err := New(newEngine(t), WithLogger(quiet)).Run(context.Background(), stringSource(session))
	require.NoError(t, err)

	_, err = New(newEngine(t), WithLogger(quiet), WithStrict(true)).Run(context.Background(), stringSource(session))
	assert.ErrorIs(t, err, world.ErrInconsistent)
}

func TestRunMalformedPayload(t *testing.T) {
	session := `{"type":"gamedata","payload":{"state":"sideways"}}` + "\n"
	_, err := New(newEngine(t), WithLogger(quiet)).Run(context.Background(), stringSource(session))
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(newEngine(t), WithLogger(quiet)).Run(ctx, open(t))
	assert.ErrorIs(t, err, context.Canceled)
}
