// Package postgres journals to PostgreSQL through the GORM backend.
// When the server is unreachable the journal falls back to in-memory SQLite.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/internal/database"
	gormstorage "github.com/hexwars/replica/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend is a GORM backend whose connection comes from database.Manager.
type Backend struct {
	*gormstorage.Backend
	cfg     config.DBConfig
	logger  *slog.Logger
	manager *database.Manager
}

func New(cfg config.DBConfig, logger *slog.Logger, dbLog zerolog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger, manager: database.NewManager(dbLog)}
}

// Init connects, migrates, and starts the writer.
func (b *Backend) Init() error {
	if err := b.manager.Connect(b.cfg); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: b.manager.DB, Logger: b.logger})
	return b.Backend.Init()
}

// Close is safe before Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}

// Local reports whether Init fell back to SQLite.
func (b *Backend) Local() bool {
	return b.manager.Local
}

// Pending is zero before Init.
func (b *Backend) Pending() int {
	if b.Backend == nil {
		return 0
	}
	return b.Backend.Pending()
}
