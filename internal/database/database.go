// Package database opens and prepares the GORM connections behind the journal backends.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN is the shared in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

// ErrNoDumpPath is returned by DumpMemoryDBToDisk without a target file.
var ErrNoDumpPath = errors.New("sqlite file path not set")

var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
	"PRAGMA page_size = 32768;",
}

// PostgresDSN renders cfg as a libpq key/value string.
func PostgresDSN(cfg config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

func GetPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB opens path, or the shared in-memory database when path is empty.
func GetSqliteDB(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}
	return db, nil
}

// Migrate creates the journal schema and the instance info row.
func Migrate(db *gorm.DB) error {
	if !db.Migrator().HasTable(&model.ReplicaInfo{}) {
		if err := db.AutoMigrate(&model.ReplicaInfo{}); err != nil {
			return fmt.Errorf("failed to create replica_infos table: %w", err)
		}
		if err := db.Create(&model.ReplicaInfo{Name: "wars-replica", Description: "game journal"}).Error; err != nil {
			return fmt.Errorf("failed to create replica_infos entry: %w", err)
		}
	}
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DumpMemoryDBToDisk writes a point-in-time copy of db to path, replacing any previous dump.
func DumpMemoryDBToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return ErrNoDumpPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating dump directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing existing DB file: %w", err)
	}
	if err := db.Exec("VACUUM INTO ?", "file:"+path).Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}

// GetBackupDBPaths lists the .db files directly inside dir.
func GetBackupDBPaths(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, f := range files {
		if !f.IsDir() && strings.EqualFold(filepath.Ext(f.Name()), ".db") {
			paths = append(paths, filepath.Join(dir, f.Name()))
		}
	}
	return paths, nil
}

// Manager connects to postgres and falls back to the in-memory SQLite database.
type Manager struct {
	DB     *gorm.DB
	SqlDB  *sql.DB
	Local  bool
	Logger zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Connect opens and pings postgres. On failure it switches to SQLite and sets Local.
func (m *Manager) Connect(cfg config.DBConfig) error {
	db, err := GetPostgresDB(cfg)
	if err == nil {
		err = m.ping(db)
	}
	if err != nil {
		m.Logger.Error().Err(err).Str("host", cfg.Host).Msg("Postgres unavailable, using in-memory SQLite")
		if db, err = GetSqliteDB(""); err != nil {
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
		if err = m.ping(db); err != nil {
			return err
		}
		m.Local = true
	} else {
		m.SqlDB.SetMaxOpenConns(10)
		m.Logger.Info().Str("host", cfg.Host).Msg("Connected to database")
	}
	m.DB = db

	start := time.Now()
	if err := Migrate(db); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Msg("Schema migrated")
	return nil
}

func (m *Manager) ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	m.SqlDB = sqlDB
	return nil
}
