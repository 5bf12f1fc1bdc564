package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/hexwars/replica/pkg/streaming"
)

const (
	sendChSize = 10_000
	ackChSize  = 16
	writeWait  = 10 * time.Second
)

// timings are the connection's retry and wait limits.
type timings struct {
	ackTimeout   time.Duration
	maxReconnect int
	firstBackoff time.Duration
	maxBackoff   time.Duration
}

var defaultTimings = timings{
	ackTimeout:   10 * time.Second,
	maxReconnect: 10,
	firstBackoff: time.Second,
	maxBackoff:   30 * time.Second,
}

// connection owns one websocket with a single writer goroutine.
// After a reconnect the open session's start_game message is sent again first.
type connection struct {
	mu       sync.Mutex
	conn     *ws.Conn
	closed   bool
	startMsg []byte

	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{}

	endpoint string
	t        timings
	dropped  atomic.Uint64
	logger   *slog.Logger
}

func newConnection(t timings, logger *slog.Logger) *connection {
	return &connection{
		sendCh: make(chan []byte, sendChSize),
		ackCh:  make(chan streaming.AckMessage, ackChSize),
		done:   make(chan struct{}),
		t:      t,
		logger: logger,
	}
}

func endpoint(rawURL, secret string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid websocket URL %q: scheme must be ws or wss", rawURL)
	}
	if secret != "" {
		q := u.Query()
		q.Set("secret", secret)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *connection) dial(rawURL, secret string) error {
	ep, err := endpoint(rawURL, secret)
	if err != nil {
		return err
	}
	c.endpoint = ep

	conn, _, err := ws.DefaultDialer.Dial(ep, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	c.attach(conn)
	go c.writeLoop()
	return nil
}

func (c *connection) attach(conn *ws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
}

// writeLoop is the only writer for the lifetime of the connection, across reconnects.
func (c *connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			conn := c.current()
			if conn == nil {
				return
			}
			if err := write(conn, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				// The message is lost with the connection.
				c.dropped.Add(1)
				go c.reconnect(conn)
			}
		}
	}
}

// current blocks while a reconnect is in progress. It returns nil once closed.
func (c *connection) current() *ws.Conn {
	for {
		c.mu.Lock()
		conn, closed := c.conn, c.closed
		c.mu.Unlock()
		if closed {
			return nil
		}
		if conn != nil {
			return conn
		}
		select {
		case <-c.done:
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// readLoop only cares about acks. Anything else from the server is logged and ignored.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("WebSocket read error", "error", err)
				go c.reconnect(conn)
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// reconnect replaces broken with a new connection. The read and write loops
// can both report the same failure; only the first report redials.
func (c *connection) reconnect(broken *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.conn != broken {
		c.mu.Unlock()
		return
	}
	_ = broken.Close()
	c.conn = nil
	c.mu.Unlock()

	backoff := c.t.firstBackoff
	for attempt := 1; attempt <= c.t.maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt)
		conn, _, err := ws.DefaultDialer.Dial(c.endpoint, nil)
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, c.t.maxBackoff)
			continue
		}

		c.mu.Lock()
		start := c.startMsg
		c.mu.Unlock()
		if start != nil {
			if err := write(conn, start); err != nil {
				c.logger.Warn("Failed to resend start_game after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		c.attach(conn)
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", c.t.maxReconnect)
}

// send queues data for the writer. It never blocks; a full queue drops the message.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.dropped.Add(1)
		c.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// sendAndWait sends data and blocks until an ack for ackFor arrives.
func (c *connection) sendAndWait(data []byte, ackFor string) error {
	c.send(data)

	timer := time.NewTimer(c.t.ackTimeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

func (c *connection) setStart(data []byte) {
	c.mu.Lock()
	c.startMsg = data
	c.mu.Unlock()
}

// close sends a close frame and stops the loops.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return conn.Close()
}
