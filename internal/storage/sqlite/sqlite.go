// Package sqlitestorage keeps the journal in an in-memory SQLite database
// and dumps it to disk with VACUUM INTO. Writes go through the GORM backend.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/internal/database"
	gormstorage "github.com/hexwars/replica/internal/storage/gorm"
	"github.com/hexwars/replica/pkg/core"
	"gorm.io/gorm"
)

// Backend wraps the GORM backend with periodic disk dumps.
type Backend struct {
	*gormstorage.Backend
	db     *gorm.DB
	cfg    config.SQLiteConfig
	logger *slog.Logger

	mu       sync.Mutex
	dumpMu   sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	lastMeta core.UploadMetadata
	dumped   bool
}

// New opens the shared in-memory database.
func New(cfg config.SQLiteConfig, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}),
		db:      db,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	b.stopChan = make(chan struct{})
	if b.cfg.Path != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, flushes, and writes a final dump.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.Path == "" {
		return nil
	}
	return b.dump()
}

// EndGame closes the game row and dumps the database.
func (b *Backend) EndGame() error {
	if err := b.Backend.EndGame(); err != nil {
		return err
	}
	if b.cfg.Path == "" {
		return nil
	}
	return b.dump()
}

// ExportedFilePath is the dump file once one has been written.
func (b *Backend) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dumped {
		return ""
	}
	return b.cfg.Path
}

func (b *Backend) ExportMetadata() core.UploadMetadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastMeta
}

// StartGame remembers the session for the upload metadata.
func (b *Backend) StartGame(s core.Session) error {
	if err := b.Backend.StartGame(s); err != nil {
		return err
	}
	b.mu.Lock()
	b.lastMeta = core.UploadMetadata{GameID: s.GameID, GameName: s.GameName, MapID: s.MapID}
	b.mu.Unlock()
	return nil
}

func (b *Backend) RecordEntry(e core.JournalEntry) error {
	if err := b.Backend.RecordEntry(e); err != nil {
		return err
	}
	b.mu.Lock()
	b.lastMeta.Events++
	b.lastMeta.Turns = max(b.lastMeta.Turns, e.Turn)
	b.mu.Unlock()
	return nil
}

func (b *Backend) dump() error {
	b.dumpMu.Lock()
	defer b.dumpMu.Unlock()

	if err := b.Flush(); err != nil {
		return err
	}
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.Path); err != nil {
		return err
	}
	b.mu.Lock()
	b.dumped = true
	b.mu.Unlock()
	b.logger.Debug("Dumped to disk", "path", b.cfg.Path, "duration", time.Since(start))
	return nil
}

func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.dump(); err != nil {
				b.logger.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
