// pkg/core/journal.go
package core

import (
	"encoding/json"
	"errors"
	"time"
)

// JournalEntry is one recorded notification.
type JournalEntry struct {
	SessionID string          `json:"sessionId"`
	Seq       uint64          `json:"seq"`
	Kind      EventKind       `json:"kind"`
	Turn      int             `json:"turn"`
	Round     int             `json:"round"`
	InTurn    int             `json:"inTurn"`
	Time      time.Time       `json:"time"`
	Payload   json.RawMessage `json:"payload"`
}

// UploadMetadata describes an exported journal for the archive service.
type UploadMetadata struct {
	GameID   string
	GameName string
	MapID    string
	Turns    int
	Events   int
}

// Session identifies one recording of one game.
type Session struct {
	ID       string
	GameID   string
	GameName string
	MapID    string
	Started  time.Time
	Players  []Player
}

// ErrNoSession is returned by journal backends asked to record outside a session.
var ErrNoSession = errors.New("no journal session")
