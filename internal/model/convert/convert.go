// Package convert maps between core journal types and GORM models.
package convert

import (
	"encoding/json"
	"sort"

	"github.com/hexwars/replica/internal/model"
	"github.com/hexwars/replica/pkg/core"
	"gorm.io/datatypes"
)

// CoreToJournalEntry converts an entry for the game row with the given id.
// An empty payload is stored as JSON null.
func CoreToJournalEntry(e core.JournalEntry, gameID uint) model.JournalEntry {
	payload := datatypes.JSON("null")
	if len(e.Payload) > 0 {
		payload = datatypes.JSON(e.Payload)
	}
	return model.JournalEntry{
		GameID:  gameID,
		Seq:     e.Seq,
		Kind:    string(e.Kind),
		Turn:    e.Turn,
		Round:   e.Round,
		InTurn:  e.InTurn,
		Time:    e.Time,
		Payload: payload,
	}
}

// JournalEntryToCore is the inverse of CoreToJournalEntry; sessionID comes from the game row.
func JournalEntryToCore(m model.JournalEntry, sessionID string) core.JournalEntry {
	return core.JournalEntry{
		SessionID: sessionID,
		Seq:       m.Seq,
		Kind:      core.EventKind(m.Kind),
		Turn:      m.Turn,
		Round:     m.Round,
		InTurn:    m.InTurn,
		Time:      m.Time,
		Payload:   json.RawMessage(m.Payload),
	}
}

// SessionToGame builds the game row for a new session with its players sorted by number.
func SessionToGame(s core.Session) model.Game {
	g := model.Game{
		SessionID: s.ID,
		GameID:    s.GameID,
		Name:      s.GameName,
		MapID:     s.MapID,
		StartedAt: s.Started,
	}
	for _, p := range s.Players {
		g.Players = append(g.Players, model.Player{
			PlayerID: p.ID,
			Name:     p.Name,
			Number:   p.Number,
			Team:     p.Team,
		})
	}
	sort.Slice(g.Players, func(i, j int) bool { return g.Players[i].Number < g.Players[j].Number })
	return g
}
