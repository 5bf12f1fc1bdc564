package sqlitestorage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/internal/database"
	"github.com/hexwars/replica/internal/model"
	"github.com/hexwars/replica/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The in-memory database is shared by every backend in this test binary,
// so assertions count rows per session.
func session(id string) core.Session {
	return core.Session{ID: id, GameID: "g-" + id, GameName: "duel", Started: time.Now().UTC()}
}

func entry(id string, seq uint64, turn int) core.JournalEntry {
	return core.JournalEntry{SessionID: id, Seq: seq, Kind: core.KindMove, Turn: turn, Time: time.Now().UTC(), Payload: json.RawMessage(`{}`)}
}

func TestEndGameDumps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump", "journal.db")
	b, err := New(config.SQLiteConfig{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Empty(t, b.ExportedFilePath())

	require.NoError(t, b.StartGame(session("dump-1")))
	require.NoError(t, b.RecordEntry(entry("dump-1", 1, 1)))
	require.NoError(t, b.RecordEntry(entry("dump-1", 2, 4)))
	require.NoError(t, b.EndGame())

	assert.Equal(t, path, b.ExportedFilePath())
	assert.Equal(t, core.UploadMetadata{GameID: "g-dump-1", GameName: "duel", Turns: 4, Events: 2}, b.ExportMetadata())

	_, err = os.Stat(path)
	require.NoError(t, err)

	disk, err := database.GetSqliteDB(path)
	require.NoError(t, err)
	var game model.Game
	require.NoError(t, disk.Where("session_id = ?", "dump-1").First(&game).Error)
	var count int64
	require.NoError(t, disk.Model(&model.JournalEntry{}).Where("game_id = ?", game.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestNoPathSkipsDump(t *testing.T) {
	b, err := New(config.SQLiteConfig{DumpInterval: time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.StartGame(session("nodump-1")))
	require.NoError(t, b.EndGame())
	assert.Empty(t, b.ExportedFilePath())
	require.NoError(t, b.Close())
}

func TestDumpLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.db")
	b, err := New(config.SQLiteConfig{Path: path, DumpInterval: 10 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}
