// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hexwars/replica/pkg/core"
)

// ExportVersion is bumped when the export layout changes.
const ExportVersion = 1

// Export is the root JSON structure of a journal file.
type Export struct {
	Version   int                 `json:"version"`
	SessionID string              `json:"sessionId"`
	GameID    string              `json:"gameId"`
	GameName  string              `json:"gameName"`
	MapID     string              `json:"mapId"`
	Started   time.Time           `json:"started"`
	Players   []PlayerJSON        `json:"players"`
	Entries   []core.JournalEntry `json:"entries"`
}

type PlayerJSON struct {
	Number int    `json:"number"`
	Team   int    `json:"team"`
	Name   string `json:"name"`
}

var fileNameReplacer = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")

func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := b.session.GameName
	if name == "" {
		name = b.session.GameID
	}
	filename := fmt.Sprintf("%s_%s.json", fileNameReplacer.Replace(name), b.session.Started.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(b.cfg.OutputDir, filename)

	if err := writeExport(path, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	size := "?"
	if st, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(st.Size()))
	}
	b.logger.Info("Journal exported", "path", path, "entries", len(export.Entries), "size", size)

	b.exported = path
	b.meta = b.metadataLocked()
	return nil
}

func (b *Backend) buildExport() Export {
	export := Export{
		Version:   ExportVersion,
		SessionID: b.session.ID,
		GameID:    b.session.GameID,
		GameName:  b.session.GameName,
		MapID:     b.session.MapID,
		Started:   b.session.Started,
		Players:   make([]PlayerJSON, 0, len(b.session.Players)),
		Entries:   b.entries,
	}
	if export.Entries == nil {
		export.Entries = []core.JournalEntry{}
	}
	for _, p := range b.session.Players {
		export.Players = append(export.Players, PlayerJSON{Number: p.Number, Team: p.Team, Name: p.Name})
	}
	return export
}

func writeExport(path string, data Export, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// ReadExport loads a file written by EndGame. Gzip is detected from the .gz suffix.
func ReadExport(path string) (Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return Export{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Export{}, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return Export{}, fmt.Errorf("decoding export: %w", err)
	}
	return export, nil
}
