package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/hexwars/replica/internal/config"
	"github.com/hexwars/replica/pkg/streaming"
)

// WebsocketSource reads envelopes from a live session server.
// A normal close from the server ends the stream with io.EOF.
type WebsocketSource struct {
	conn        *ws.Conn
	readTimeout time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
}

// DialWebsocket connects to cfg.URL, passing cfg.Secret as the secret query parameter.
func DialWebsocket(ctx context.Context, cfg config.TransportConfig, logger *slog.Logger) (*WebsocketSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid transport URL: %w", err)
	}
	if cfg.Secret != "" {
		q := u.Query()
		q.Set("secret", cfg.Secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	logger.Info("Connected to session server", "host", u.Host)
	return &WebsocketSource{conn: conn, readTimeout: cfg.ReadTimeout, logger: logger}, nil
}

// Next blocks for the next text message. The read deadline is renewed on every call.
// Cancelling ctx closes the connection.
func (s *WebsocketSource) Next(ctx context.Context) (streaming.Envelope, error) {
	if s.isClosed() {
		return streaming.Envelope{}, ErrClosed
	}

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		if s.readTimeout > 0 {
			if err := s.conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
				return streaming.Envelope{}, err
			}
		}
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return streaming.Envelope{}, ctxErr
			}
			if ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				return streaming.Envelope{}, io.EOF
			}
			if s.isClosed() {
				return streaming.Envelope{}, ErrClosed
			}
			return streaming.Envelope{}, fmt.Errorf("websocket read: %w", err)
		}
		if msgType != ws.TextMessage {
			s.logger.Debug("Ignoring non-text message", "type", msgType)
			continue
		}

		var env streaming.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return streaming.Envelope{}, fmt.Errorf("invalid envelope: %w", err)
		}
		if env.Type == "" {
			return streaming.Envelope{}, errors.New("envelope without type")
		}
		return env, nil
	}
}

func (s *WebsocketSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close sends a close frame and drops the connection.
func (s *WebsocketSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}
