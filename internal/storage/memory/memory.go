// internal/storage/memory/memory.go
package memory

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/pkg/core"
)

// Backend keeps the session's entries in memory and exports them as JSON on EndGame.
type Backend struct {
	cfg    config.MemoryConfig
	logger *slog.Logger

	mu       sync.RWMutex
	session  *core.Session
	entries  []core.JournalEntry
	maxTurn  int
	exported string
	meta     core.UploadMetadata
}

func New(cfg config.MemoryConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger}
}

func (b *Backend) Init() error {
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// StartGame discards anything left from a previous session.
func (b *Backend) StartGame(s core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = &s
	b.entries = nil
	b.maxTurn = 0
	return nil
}

func (b *Backend) RecordEntry(e core.JournalEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	b.entries = append(b.entries, e)
	b.maxTurn = max(b.maxTurn, e.Turn)
	return nil
}

// EndGame writes the export file and closes the session.
func (b *Backend) EndGame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.session = nil
	return nil
}

// Entries returns a copy of the current session's entries.
func (b *Backend) Entries() []core.JournalEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.entries)
}

// ExportedFilePath is empty until a session has been exported.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.exported
}

// ExportMetadata describes the open session, or the last exported one.
func (b *Backend) ExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session == nil {
		return b.meta
	}
	return b.metadataLocked()
}

func (b *Backend) metadataLocked() core.UploadMetadata {
	return core.UploadMetadata{
		GameID:   b.session.GameID,
		GameName: b.session.GameName,
		MapID:    b.session.MapID,
		Turns:    b.maxTurn,
		Events:   len(b.entries),
	}
}
