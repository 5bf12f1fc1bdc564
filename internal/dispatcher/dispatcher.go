package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hexwars/replica/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/hexwars/replica/internal/dispatcher"

// ErrUnknownEvent is returned when no handler is registered for an event kind.
var ErrUnknownEvent = errors.New("unknown event")

// HandlerFunc applies one event.
type HandlerFunc func(core.Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers. Handlers run on the caller's goroutine.
type Dispatcher struct {
	handlers map[core.EventKind]HandlerFunc
	logger   Logger

	// OTEL metrics
	applied metric.Int64Counter
	failed  metric.Int64Counter
	unknown metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[core.EventKind]HandlerFunc),
		logger:   logger,
	}

	m := otel.Meter(instrumentationName)

	var err error

	d.applied, err = m.Int64Counter(
		"engine.events.applied",
		metric.WithDescription("Total events applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating applied counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"engine.events.failed",
		metric.WithDescription("Total events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	d.unknown, err = m.Int64Counter(
		"engine.events.unknown",
		metric.WithDescription("Total events without a registered handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating unknown counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given kind with optional configuration.
func (d *Dispatcher) Register(kind core.EventKind, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := d.withMetrics(kind, h)

	if cfg.logged {
		handler = d.withLogging(kind, handler)
	}

	d.handlers[kind] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e core.Event) error {
	h, ok := d.handlers[e.Kind()]
	if !ok {
		d.unknown.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(e.Kind()))))
		return fmt.Errorf("%w: %s", ErrUnknownEvent, e.Kind())
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the kind.
func (d *Dispatcher) HasHandler(kind core.EventKind) bool {
	_, ok := d.handlers[kind]
	return ok
}

func (d *Dispatcher) withMetrics(kind core.EventKind, h HandlerFunc) HandlerFunc {
	kindAttr := metric.WithAttributes(attribute.String("kind", string(kind)))
	return func(e core.Event) error {
		if err := h(e); err != nil {
			d.failed.Add(context.Background(), 1, kindAttr)
			return err
		}
		d.applied.Add(context.Background(), 1, kindAttr)
		return nil
	}
}

func (d *Dispatcher) withLogging(kind core.EventKind, h HandlerFunc) HandlerFunc {
	return func(e core.Event) error {
		start := time.Now()
		d.logger.Debug("applying event", "kind", kind)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "kind", kind, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event applied", "kind", kind, "duration", time.Since(start))
		}

		return err
	}
}
