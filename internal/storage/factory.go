// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/internal/storage/influx"
	"github.com/hexwars/replica/internal/storage/memory"
	"github.com/hexwars/replica/internal/storage/postgres"
	sqlitestorage "github.com/hexwars/replica/internal/storage/sqlite"
	"github.com/hexwars/replica/internal/storage/websocket"
	"github.com/hexwars/replica/pkg/core"
	"github.com/rs/zerolog"
)

// NewBackend validates cfg and creates the journal backend named by cfg.Type.
// The backend is not initialized.
// dbLog receives connection diagnostics from the postgres and influx backends.
func NewBackend(cfg config.JournalConfig, logger *slog.Logger, dbLog zerolog.Logger) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "memory", "":
		return memory.New(cfg.Memory, logger), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, logger)
	case "postgres":
		return postgres.New(cfg.DB, logger, dbLog), nil
	case "websocket":
		return websocket.New(cfg.Websocket, logger), nil
	case "influx":
		return influx.New(cfg.Influx, dbLog), nil
	case "none":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}

// Discard accepts and forgets everything.
type Discard struct{}

func (Discard) Init() error                         { return nil }
func (Discard) Close() error                        { return nil }
func (Discard) StartGame(core.Session) error        { return nil }
func (Discard) RecordEntry(core.JournalEntry) error { return nil }
func (Discard) EndGame() error                      { return nil }
