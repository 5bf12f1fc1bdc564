// Package influx journals entries as InfluxDB points, or as gzipped line
// protocol in a backup file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/pkg/core"
	"github.com/rs/zerolog"
)

// Measurement is the point name for journal entries.
const Measurement = "game_event"

const retention = 60 * 60 * 24 * 90 // 90 days

// Backend writes one point per journal entry.
type Backend struct {
	cfg    config.InfluxConfig
	logger zerolog.Logger

	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	mu         sync.Mutex
	backupFile *os.File
	backup     *gzip.Writer
	session    *core.Session
}

func New(cfg config.InfluxConfig, logger zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, logger: logger}
}

// Init pings the server. If it does not answer, entries go to the backup file instead.
func (b *Backend) Init() error {
	b.client = influxdb2.NewClientWithOptions(b.cfg.URL, b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	running, err := b.client.Ping(ctx)
	if err != nil || !running {
		b.logger.Warn().Err(err).Str("backupPath", b.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return b.openBackup()
	}

	if err := b.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			b.logger.Error().Err(writeErr).Str("bucket", b.cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(b.writer.Errors())

	b.logger.Info().Str("url", b.cfg.URL).Msg("InfluxDB client initialized")
	return nil
}

func (b *Backend) openBackup() error {
	if b.cfg.BackupPath == "" {
		return fmt.Errorf("influxdb unreachable and no backup path configured")
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.BackupPath), 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	file, err := os.OpenFile(b.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backup = gzip.NewWriter(file)
	return nil
}

func (b *Backend) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := b.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, b.cfg.Org)
	if err != nil {
		b.logger.Info().Str("org", b.cfg.Org).Msg("Organization not found, creating")
		if org, err = orgs.CreateOrganizationWithName(ctx, b.cfg.Org); err != nil {
			return fmt.Errorf("error creating organization %q: %w", b.cfg.Org, err)
		}
	}

	buckets := b.client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, b.cfg.Bucket); err != nil {
		b.logger.Info().Str("bucket", b.cfg.Bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = buckets.CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retention,
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %q: %w", b.cfg.Bucket, err)
		}
	}
	return nil
}

// Backup reports whether entries are going to the backup file.
func (b *Backend) Backup() bool {
	return b.backup != nil
}

// Close flushes pending points and closes the backup file.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.writer != nil {
		b.writer.Flush()
	}
	if b.client != nil {
		b.client.Close()
	}
	if b.backup == nil {
		return nil
	}
	err := b.backup.Close()
	if cerr := b.backupFile.Close(); err == nil {
		err = cerr
	}
	b.backup, b.backupFile = nil, nil
	return err
}

func (b *Backend) StartGame(s core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = &s
	return nil
}

func (b *Backend) RecordEntry(e core.JournalEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	point := EntryPoint(*b.session, e)

	if b.writer != nil {
		b.writer.WritePoint(point)
		return nil
	}
	if b.backup == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	line := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := b.backup.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// EndGame flushes the session's points.
func (b *Backend) EndGame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	b.session = nil
	if b.writer != nil {
		b.writer.Flush()
	}
	if b.backup != nil {
		return b.backup.Flush()
	}
	return nil
}

// EntryPoint converts e into a point tagged with the session and event kind.
func EntryPoint(s core.Session, e core.JournalEntry) *influxdb2_write.Point {
	return influxdb2.NewPoint(Measurement,
		map[string]string{
			"session": s.ID,
			"game":    s.GameID,
			"kind":    string(e.Kind),
		},
		map[string]interface{}{
			"seq":     e.Seq,
			"turn":    e.Turn,
			"round":   e.Round,
			"inTurn":  e.InTurn,
			"payload": string(e.Payload),
		},
		e.Time)
}
