// Package websocket streams journal entries to a spectator server.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/pkg/core"
	"github.com/hexwars/replica/pkg/streaming"
)

// Backend sends start_game and end_game with an ack round trip and every
// journal entry fire-and-forget. It leaves nothing to upload.
type Backend struct {
	cfg  config.WebsocketConfig
	conn *connection

	mu      sync.Mutex
	session string
	sent    uint64
}

func New(cfg config.WebsocketConfig, logger *slog.Logger) *Backend {
	return newBackend(cfg, logger, defaultTimings)
}

func newBackend(cfg config.WebsocketConfig, logger *slog.Logger, t timings) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, conn: newConnection(t, logger.With("journal", "websocket"))}
}

// Init connects to the server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

func (b *Backend) Close() error {
	return b.conn.close()
}

func marshal(msgType string, payload any) ([]byte, error) {
	env, err := streaming.NewEnvelope(msgType, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// StartGame announces the session and waits for the server to accept it.
func (b *Backend) StartGame(s core.Session) error {
	data, err := marshal(streaming.TypeStartGame, streaming.StartGamePayload{
		SessionID: s.ID,
		GameID:    s.GameID,
		GameName:  s.GameName,
		MapID:     s.MapID,
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.session = s.ID
	b.sent = 0
	b.mu.Unlock()

	b.conn.setStart(data)
	return b.conn.sendAndWait(data, streaming.TypeStartGame)
}

func (b *Backend) RecordEntry(e core.JournalEntry) error {
	b.mu.Lock()
	if b.session == "" {
		b.mu.Unlock()
		return core.ErrNoSession
	}
	b.sent++
	b.mu.Unlock()

	env, err := streaming.JournalEnvelope(e)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// EndGame closes the session on the server. Local session state is cleared even on error.
func (b *Backend) EndGame() error {
	b.mu.Lock()
	session, sent := b.session, b.sent
	b.session = ""
	b.mu.Unlock()

	if session == "" {
		return core.ErrNoSession
	}
	b.conn.setStart(nil)

	data, err := marshal(streaming.TypeEndGame, streaming.EndGamePayload{SessionID: session, Events: sent})
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, streaming.TypeEndGame)
}

// Dropped counts messages lost to a full queue or a broken connection.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}
