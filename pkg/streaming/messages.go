package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/hexwars/replica/pkg/core"
)

// Inbound message types.
const (
	TypeRules    = "rules"
	TypeGameData = "gamedata"
	TypeEvent    = "event"
)

// Outbound journal message types.
const (
	TypeStartGame = "start_game"
	TypeJournal   = "journal_entry"
	TypeEndGame   = "end_game"
	TypeAck       = "ack"
)

// Envelope wraps every message on a session stream.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartGamePayload opens a journal session on a spectator server.
type StartGamePayload struct {
	SessionID string `json:"sessionId"`
	GameID    string `json:"gameId"`
	GameName  string `json:"gameName"`
	MapID     string `json:"mapId"`
}

// EndGamePayload closes a journal session.
type EndGamePayload struct {
	SessionID string `json:"sessionId"`
	Events    uint64 `json:"events"`
}

// NewEnvelope marshals payload under the given message type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}

// JournalEnvelope wraps one journal entry.
func JournalEnvelope(e core.JournalEntry) (Envelope, error) {
	return NewEnvelope(TypeJournal, e)
}
