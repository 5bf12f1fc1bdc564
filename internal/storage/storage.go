// internal/storage/storage.go
package storage

import "github.com/hexwars/replica/pkg/core"

// Backend is the interface all journal implementations must satisfy.
type Backend interface {
	Init() error
	Close() error

	StartGame(s core.Session) error
	RecordEntry(e core.JournalEntry) error
	EndGame() error
}

// Uploadable is implemented by backends that leave a file for the archive service.
type Uploadable interface {
	ExportedFilePath() string
	ExportMetadata() core.UploadMetadata
}

// Buffered is implemented by backends that queue writes before committing them.
type Buffered interface {
	Pending() int
}
