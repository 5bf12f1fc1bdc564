package storage

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hexwars/replica/internal/notify"
	"github.com/hexwars/replica/pkg/core"
)

// GameSource is the engine's view of the game being recorded.
type GameSource interface {
	Info() core.GameInfo
	Players() []core.Player
}

// Recorder turns engine notifications into journal entries.
// A session opens on the first gamedata notification and closes on finished,
// on a gamedata notification for a different game, or on Close.
type Recorder struct {
	backend Backend
	game    GameSource
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	mu      sync.Mutex
	session *core.Session
	seq     uint64
	dropped uint64
	failed  uint64
}

type RecorderOption func(*Recorder)

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithSessionIDs replaces the random UUID session ids.
func WithSessionIDs(next func() string) RecorderOption {
	return func(r *Recorder) { r.newID = next }
}

func NewRecorder(b Backend, game GameSource, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		backend: b,
		game:    game,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Attach subscribes the recorder to an event stream.
func (r *Recorder) Attach(events *notify.Stream[core.Event]) *notify.Subscription[core.Event] {
	return events.Subscribe(r.Record)
}

// Record journals one notification. Backend errors are logged and counted, never returned,
// so a failing journal cannot stop the replay.
func (r *Recorder) Record(ev core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := r.game.Info()

	if gd, ok := ev.(core.GameDataEvent); ok {
		if r.session != nil && r.session.GameID != gd.GameID {
			r.endLocked()
		}
		if r.session == nil {
			r.startLocked(info)
		}
	}

	if r.session == nil {
		r.dropped++
		r.logger.Warn("Dropping notification outside a session", "kind", string(ev.Kind()))
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		r.failed++
		r.logger.Error("Failed to encode notification", "kind", string(ev.Kind()), "error", err)
		return
	}

	r.seq++
	entry := core.JournalEntry{
		SessionID: r.session.ID,
		Seq:       r.seq,
		Kind:      ev.Kind(),
		Turn:      info.TurnNumber,
		Round:     info.RoundNumber,
		InTurn:    info.InTurnNumber,
		Time:      r.now().UTC(),
		Payload:   payload,
	}
	if err := r.backend.RecordEntry(entry); err != nil {
		r.failed++
		r.logger.Error("Failed to record journal entry", "seq", entry.Seq, "kind", string(entry.Kind), "error", err)
	}

	if ev.Kind() == core.KindFinished {
		r.endLocked()
	}
}

func (r *Recorder) startLocked(info core.GameInfo) {
	s := core.Session{
		ID:       r.newID(),
		GameID:   info.GameID,
		GameName: info.Name,
		MapID:    info.MapID,
		Started:  r.now().UTC(),
		Players:  r.game.Players(),
	}
	if err := r.backend.StartGame(s); err != nil {
		r.logger.Error("Failed to start journal session", "game", s.GameID, "error", err)
		return
	}
	r.session = &s
	r.seq = 0
	r.logger.Info("Journal session started", "session", s.ID, "game", s.GameID)
}

func (r *Recorder) endLocked() {
	if r.session == nil {
		return
	}
	if err := r.backend.EndGame(); err != nil {
		r.logger.Error("Failed to end journal session", "session", r.session.ID, "error", err)
	} else {
		r.logger.Info("Journal session ended", "session", r.session.ID, "entries", r.seq)
	}
	r.session = nil
}

// Session returns the open session, if any.
func (r *Recorder) Session() (core.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return core.Session{}, false
	}
	return *r.session, true
}

// Stats reports entries in the current or last session, notifications dropped outside a
// session and entries the backend rejected.
func (r *Recorder) Stats() (entries, dropped, failed uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq, r.dropped, r.failed
}

// Close ends an open session.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endLocked()
}
