package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/pkg/core"
	"github.com/hexwars/replica/pkg/streaming"
)

var fastTimings = timings{
	ackTimeout:   500 * time.Millisecond,
	maxReconnect: 20,
	firstBackoff: 10 * time.Millisecond,
	maxBackoff:   50 * time.Millisecond,
}

type server struct {
	*httptest.Server
	mu       sync.Mutex
	messages []streaming.Envelope
	secrets  []string
	conns    []*ws.Conn
	noAck    bool
}

// newServer upgrades every request, records envelopes and acks start_game and end_game.
func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{}
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		s.mu.Lock()
		s.secrets = append(s.secrets, r.URL.Query().Get("secret"))
		s.conns = append(s.conns, c)
		s.mu.Unlock()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			s.mu.Lock()
			s.messages = append(s.messages, env)
			noAck := s.noAck
			s.mu.Unlock()

			if !noAck && (env.Type == streaming.TypeStartGame || env.Type == streaming.TypeEndGame) {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *server) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *server) all() []streaming.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]streaming.Envelope(nil), s.messages...)
}

func (s *server) count(msgType string) int {
	n := 0
	for _, m := range s.all() {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

func (s *server) dropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
}

func session() core.Session {
	return core.Session{ID: "sess-1", GameID: "g1", GameName: "Duel", MapID: "m3"}
}

func entry(seq uint64) core.JournalEntry {
	return core.JournalEntry{SessionID: "sess-1", Seq: seq, Kind: core.KindMove, Payload: json.RawMessage(`{"unit":1}`)}
}

func TestInitRejectsBadURL(t *testing.T) {
	b := New(config.WebsocketConfig{URL: "http://example.com"}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestStartAndEndGame(t *testing.T) {
	srv := newServer(t)
	b := newBackend(config.WebsocketConfig{URL: srv.url(), Secret: "hunter2"}, nil, fastTimings)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartGame(session()))
	require.NoError(t, b.RecordEntry(entry(1)))
	require.NoError(t, b.RecordEntry(entry(2)))
	require.NoError(t, b.EndGame())

	msgs := srv.all()
	require.Len(t, msgs, 4)
	assert.Equal(t, streaming.TypeStartGame, msgs[0].Type)
	assert.Equal(t, streaming.TypeJournal, msgs[1].Type)
	assert.Equal(t, streaming.TypeEndGame, msgs[3].Type)

	var start streaming.StartGamePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, streaming.StartGamePayload{SessionID: "sess-1", GameID: "g1", GameName: "Duel", MapID: "m3"}, start)

	var e core.JournalEntry
	require.NoError(t, json.Unmarshal(msgs[2].Payload, &e))
	assert.Equal(t, uint64(2), e.Seq)
	assert.JSONEq(t, `{"unit":1}`, string(e.Payload))

	var end streaming.EndGamePayload
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &end))
	assert.Equal(t, uint64(2), end.Events)

	srv.mu.Lock()
	assert.Equal(t, []string{"hunter2"}, srv.secrets)
	srv.mu.Unlock()
}

func TestRecordOutsideSession(t *testing.T) {
	srv := newServer(t)
	b := newBackend(config.WebsocketConfig{URL: srv.url()}, nil, fastTimings)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.ErrorIs(t, b.RecordEntry(entry(1)), core.ErrNoSession)
	assert.ErrorIs(t, b.EndGame(), core.ErrNoSession)
}

func TestStartGameAckTimeout(t *testing.T) {
	srv := newServer(t)
	srv.mu.Lock()
	srv.noAck = true
	srv.mu.Unlock()
	b := newBackend(config.WebsocketConfig{URL: srv.url()}, nil, fastTimings)
	require.NoError(t, b.Init())
	defer b.Close()

	err := b.StartGame(session())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for ack")
}

func TestReconnectResendsStartGame(t *testing.T) {
	srv := newServer(t)
	b := newBackend(config.WebsocketConfig{URL: srv.url()}, nil, fastTimings)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartGame(session()))
	srv.dropConnections()

	assert.Eventually(t, func() bool {
		return srv.count(streaming.TypeStartGame) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.RecordEntry(entry(1)))
	assert.Eventually(t, func() bool {
		return srv.count(streaming.TypeJournal) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendAfterClose(t *testing.T) {
	srv := newServer(t)
	b := newBackend(config.WebsocketConfig{URL: srv.url()}, nil, fastTimings)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	err := b.StartGame(session())
	require.Error(t, err)
}
