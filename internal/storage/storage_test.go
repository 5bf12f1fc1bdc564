package storage_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/internal/engine"
	"github.com/hexwars/replica/internal/rules/rulestest"
	"github.com/hexwars/replica/internal/storage"
	gormstorage "github.com/hexwars/replica/internal/storage/gorm"
	"github.com/hexwars/replica/internal/storage/influx"
	"github.com/hexwars/replica/internal/storage/memory"
	"github.com/hexwars/replica/internal/storage/postgres"
	sqlitestorage "github.com/hexwars/replica/internal/storage/sqlite"
	"github.com/hexwars/replica/internal/storage/websocket"
	"github.com/hexwars/replica/internal/world"
	"github.com/hexwars/replica/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks.
var (
	_ storage.Backend    = (*memory.Backend)(nil)
	_ storage.Uploadable = (*memory.Backend)(nil)
	_ storage.Backend    = (*sqlitestorage.Backend)(nil)
	_ storage.Uploadable = (*sqlitestorage.Backend)(nil)
	_ storage.Backend    = (*postgres.Backend)(nil)
	_ storage.Backend    = (*websocket.Backend)(nil)
	_ storage.Backend    = (*influx.Backend)(nil)
	_ storage.Backend    = storage.Discard{}
	_ storage.Backend    = (*gormstorage.Backend)(nil)
	_ storage.Buffered   = (*gormstorage.Backend)(nil)
	_ storage.Buffered   = (*sqlitestorage.Backend)(nil)
	_ storage.Buffered   = (*postgres.Backend)(nil)

	_ storage.GameSource = (*engine.Engine)(nil)
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func validJournal(journal string) config.JournalConfig {
	return config.JournalConfig{
		Type:      journal,
		Memory:    config.MemoryConfig{OutputDir: "journals"},
		DB:        config.DBConfig{Host: "localhost", Port: "5432", Database: "replica"},
		Influx:    config.InfluxConfig{URL: "http://localhost:8086", Org: "o", Bucket: "b"},
		Websocket: config.WebsocketConfig{URL: "ws://localhost:9000/journal"},
	}
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		journal string
		want    any
	}{
		{"", &memory.Backend{}},
		{"memory", &memory.Backend{}},
		{"postgres", &postgres.Backend{}},
		{"websocket", &websocket.Backend{}},
		{"influx", &influx.Backend{}},
		{"none", storage.Discard{}},
	}
	for _, tt := range tests {
		t.Run(tt.journal, func(t *testing.T) {
			b, err := storage.NewBackend(validJournal(tt.journal), quiet, zerolog.Nop())
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}

	_, err := storage.NewBackend(config.JournalConfig{Type: "tape"}, quiet, zerolog.Nop())
	assert.EqualError(t, err, "unknown journal type: tape")
}

func TestNewBackend_InvalidConfig(t *testing.T) {
	cfg := validJournal("websocket")
	cfg.Websocket.URL = ""

	_, err := storage.NewBackend(cfg, quiet, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid websocket journal config")
}

// fakeBackend records calls and can be told to fail.
type fakeBackend struct {
	sessions []core.Session
	entries  []core.JournalEntry
	ended    int
	failNext error
}

func (f *fakeBackend) Init() error  { return nil }
func (f *fakeBackend) Close() error { return nil }
func (f *fakeBackend) StartGame(s core.Session) error {
	f.sessions = append(f.sessions, s)
	return nil
}
func (f *fakeBackend) RecordEntry(e core.JournalEntry) error {
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	f.entries = append(f.entries, e)
	return nil
}
func (f *fakeBackend) EndGame() error {
	f.ended++
	return nil
}

type fakeGame struct {
	info    core.GameInfo
	players []core.Player
}

func (g *fakeGame) Info() core.GameInfo    { return g.info }
func (g *fakeGame) Players() []core.Player { return g.players }

var clock = time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))

func newRecorder(b storage.Backend, g storage.GameSource) *storage.Recorder {
	ids := 0
	return storage.NewRecorder(b, g, quiet,
		storage.WithClock(func() time.Time { return clock }),
		storage.WithSessionIDs(func() string {
			ids++
			return []string{"a", "b", "c"}[ids-1]
		}))
}

func TestRecorderDropsOutsideSession(t *testing.T) {
	fb := &fakeBackend{}
	r := newRecorder(fb, &fakeGame{})

	r.Record(core.WaitEvent{UnitID: "u1"})

	_, open := r.Session()
	assert.False(t, open)
	entries, dropped, failed := r.Stats()
	assert.Equal(t, [3]uint64{0, 1, 0}, [3]uint64{entries, dropped, failed})
	assert.Empty(t, fb.entries)
}

func TestRecorderSessionLifecycle(t *testing.T) {
	fb := &fakeBackend{}
	g := &fakeGame{
		info:    core.GameInfo{GameID: "g1", Name: "duel", MapID: "m1", TurnNumber: 4, RoundNumber: 2, InTurnNumber: 1},
		players: []core.Player{{Number: 1, Name: "ann"}},
	}
	r := newRecorder(fb, g)

	r.Record(core.GameDataEvent{GameID: "g1"})
	r.Record(core.MoveEvent{UnitID: "u1", TileID: "t2", Path: []core.Position{{X: 0, Y: 0}, {X: 0, Y: 1}}})

	s, open := r.Session()
	require.True(t, open)
	assert.Equal(t, core.Session{ID: "a", GameID: "g1", GameName: "duel", MapID: "m1", Started: clock.UTC(), Players: g.players}, s)

	require.Len(t, fb.entries, 2)
	move := fb.entries[1]
	assert.Equal(t, uint64(2), move.Seq)
	assert.Equal(t, core.KindMove, move.Kind)
	assert.Equal(t, 4, move.Turn)
	assert.Equal(t, 2, move.Round)
	assert.Equal(t, 1, move.InTurn)
	assert.Equal(t, time.UTC, move.Time.Location())
	var payload core.MoveEvent
	require.NoError(t, json.Unmarshal(move.Payload, &payload))
	assert.Equal(t, "t2", payload.TileID)

	r.Record(core.FinishedEvent{})
	_, open = r.Session()
	assert.False(t, open)
	assert.Equal(t, 1, fb.ended)
	assert.Len(t, fb.entries, 3)

	// A second gamedata opens a fresh session.
	r.Record(core.GameDataEvent{GameID: "g1"})
	s, _ = r.Session()
	assert.Equal(t, "b", s.ID)
	assert.Equal(t, uint64(1), fb.entries[3].Seq)
}

func TestRecorderNewGameEndsSession(t *testing.T) {
	fb := &fakeBackend{}
	g := &fakeGame{info: core.GameInfo{GameID: "g1"}}
	r := newRecorder(fb, g)

	r.Record(core.GameDataEvent{GameID: "g1"})
	r.Record(core.GameDataEvent{GameID: "g1"})
	assert.Len(t, fb.sessions, 1)

	g.info.GameID = "g2"
	r.Record(core.GameDataEvent{GameID: "g2"})
	assert.Equal(t, 1, fb.ended)
	require.Len(t, fb.sessions, 2)
	assert.Equal(t, "g2", fb.sessions[1].GameID)

	r.Close()
	assert.Equal(t, 2, fb.ended)
	r.Close()
	assert.Equal(t, 2, fb.ended)
}

func TestRecorderCountsBackendFailures(t *testing.T) {
	fb := &fakeBackend{}
	r := newRecorder(fb, &fakeGame{info: core.GameInfo{GameID: "g1"}})

	r.Record(core.GameDataEvent{GameID: "g1"})
	fb.failNext = errors.New("disk full")
	r.Record(core.WaitEvent{UnitID: "u1"})
	r.Record(core.WaitEvent{UnitID: "u1"})

	entries, dropped, failed := r.Stats()
	assert.Equal(t, uint64(3), entries)
	assert.Zero(t, dropped)
	assert.Equal(t, uint64(1), failed)
	assert.Len(t, fb.entries, 2)
}

func TestRecorderWithEngine(t *testing.T) {
	e, err := engine.New(engine.WithLogger(quiet))
	require.NoError(t, err)
	e.SetRules(rulestest.Ruleset())

	mb := memory.New(config.MemoryConfig{OutputDir: t.TempDir()}, quiet)
	r := storage.NewRecorder(mb, e, quiet)
	sub := r.Attach(e.Events())
	defer sub.Cancel()

	require.NoError(t, e.LoadGameData(world.Snapshot{
		Info: core.GameInfo{GameID: "g7", Name: "pair", State: core.GameInProgress, InTurnNumber: 1},
		Tiles: []core.Tile{
			{ID: "a", X: 0, Y: 0, Type: rulestest.Road, UnitID: "u1"},
			{ID: "b", X: 0, Y: 1, Type: rulestest.Road},
		},
		Units:   []core.Unit{{ID: "u1", TileID: "a", Type: rulestest.Infantry, Owner: 1, Health: 100}},
		Players: []core.Player{{Number: 1, Team: 1, Name: "ann"}},
	}))
	require.NoError(t, e.Apply(core.MoveEvent{UnitID: "u1", TileID: "b", Path: []core.Position{{X: 0, Y: 0}, {X: 0, Y: 1}}}))
	require.NoError(t, e.Apply(core.WaitEvent{UnitID: "u1"}))

	entries := mb.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, core.KindGameData, entries[0].Kind)
	assert.Equal(t, core.KindMove, entries[1].Kind)
	assert.Equal(t, core.KindWait, entries[2].Kind)

	r.Close()
	assert.NotEmpty(t, mb.ExportedFilePath())
	assert.Equal(t, "g7", mb.ExportMetadata().GameID)
}
