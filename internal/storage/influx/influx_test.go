package influx

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func session() core.Session {
	return core.Session{ID: "s1", GameID: "g1"}
}

func entry(seq uint64, kind core.EventKind) core.JournalEntry {
	return core.JournalEntry{SessionID: "s1", Seq: seq, Kind: kind, Turn: 3, Round: 2, InTurn: 1, Time: at, Payload: json.RawMessage(`{"unit":7}`)}
}

func TestEntryPoint(t *testing.T) {
	p := EntryPoint(session(), entry(5, core.KindAttack))

	assert.Equal(t, Measurement, p.Name())
	assert.Equal(t, at, p.Time())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"session": "s1", "game": "g1", "kind": "attack"}, tags)

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, uint64(5), fields["seq"])
	assert.Equal(t, int64(3), fields["turn"])
	assert.Equal(t, `{"unit":7}`, fields["payload"])
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestBackupWhenUnreachable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup", "journal.lp.gz")
	b := New(config.InfluxConfig{URL: "http://127.0.0.1:1", Org: "o", Bucket: "b", BackupPath: path}, zerolog.Nop())
	require.NoError(t, b.Init())
	assert.True(t, b.Backup())

	assert.ErrorIs(t, b.RecordEntry(entry(1, core.KindMove)), core.ErrNoSession)

	require.NoError(t, b.StartGame(session()))
	require.NoError(t, b.RecordEntry(entry(1, core.KindMove)))
	require.NoError(t, b.RecordEntry(entry(2, core.KindWait)))
	require.NoError(t, b.EndGame())
	require.NoError(t, b.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "game_event,"))
	assert.Contains(t, lines[0], "kind=move")
	assert.Contains(t, lines[1], "kind=wait")
	assert.Contains(t, lines[1], "seq=2u")
	assert.True(t, strings.HasSuffix(lines[0], " "+"1777888800000000000"))
}

func TestUnreachableWithoutBackupPath(t *testing.T) {
	b := New(config.InfluxConfig{URL: "http://127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}
