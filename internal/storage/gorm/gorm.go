// Package gormstorage implements the journal backend on any GORM database,
// with an internal queue drained by a background writer goroutine.
package gormstorage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hexwars/replica/internal/database"
	"github.com/hexwars/replica/internal/model"
	"github.com/hexwars/replica/internal/model/convert"
	"github.com/hexwars/replica/internal/queue"
	"github.com/hexwars/replica/pkg/core"
	"gorm.io/gorm"
)

const defaultFlushInterval = 2 * time.Second

// Dependencies holds everything the backend needs from the caller.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// Backend writes journal entries to the games and journal_entries tables.
type Backend struct {
	deps  Dependencies
	queue *queue.Queue[model.JournalEntry]

	mu       sync.Mutex
	gameID   uint
	recorded uint64

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{deps: deps, queue: queue.New[model.JournalEntry]()}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// StartGame inserts the game row synchronously so entries can reference its id.
func (b *Backend) StartGame(s core.Session) error {
	game := convert.SessionToGame(s)
	if err := b.deps.DB.Create(&game).Error; err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	b.mu.Lock()
	b.gameID = game.ID
	b.recorded = 0
	b.mu.Unlock()

	b.deps.Logger.Debug("Game row created", "session", s.ID, "id", game.ID)
	return nil
}

func (b *Backend) RecordEntry(e core.JournalEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gameID == 0 {
		return core.ErrNoSession
	}
	b.queue.Push(convert.CoreToJournalEntry(e, b.gameID))
	b.recorded++
	return nil
}

// EndGame flushes pending entries and stamps the game row.
func (b *Backend) EndGame() error {
	b.mu.Lock()
	gameID, recorded := b.gameID, b.recorded
	b.gameID = 0
	b.mu.Unlock()

	if gameID == 0 {
		return core.ErrNoSession
	}
	if err := b.Flush(); err != nil {
		return err
	}

	err := b.deps.DB.Model(&model.Game{}).Where("id = ?", gameID).Updates(map[string]any{
		"ended_at": sql.NullTime{Time: time.Now().UTC(), Valid: true},
		"events":   recorded,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to close game %d: %w", gameID, err)
	}
	return nil
}

// Pending is the number of queued entries not yet written.
func (b *Backend) Pending() int {
	return b.queue.Len()
}

// Flush writes everything queued in one transaction. Failed batches go back to the front of the queue.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	items := b.queue.Drain()
	if len(items) == 0 {
		return nil
	}

	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Game").CreateInBatches(&items, 500).Error
	})
	if err != nil {
		b.queue.Requeue(items)
		return fmt.Errorf("error creating journal entries: %w", err)
	}
	b.deps.Logger.Debug("Journal entries written", "count", len(items))
	return nil
}

func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("DB writer failed", "error", err)
			}
		}
	}
}
