// Package replay drives an engine from a transport source.
package replay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hexwars/replica/internal/dispatcher"
	"github.com/hexwars/replica/internal/engine"
	"github.com/hexwars/replica/internal/parser"
	"github.com/hexwars/replica/internal/transport"
	"github.com/hexwars/replica/pkg/core"
	"github.com/hexwars/replica/pkg/streaming"
)

// Stats counts what a run consumed.
type Stats struct {
	Envelopes int
	Rules     int
	Snapshots int
	Events    int
	Skipped   int
}

// Runner applies envelopes to one engine. Run must not be called concurrently.
type Runner struct {
	engine *engine.Engine
	parser *parser.Parser
	logger *slog.Logger
	strict bool
}

type Option func(*Runner)

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithStrict checks the world invariants after every event and stops at the first violation.
func WithStrict(strict bool) Option {
	return func(r *Runner) { r.strict = strict }
}

func New(e *engine.Engine, opts ...Option) *Runner {
	r := &Runner{engine: e, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.parser = parser.NewParser(r.logger)
	return r
}

// Run consumes src until io.EOF, ctx is done or an envelope cannot be applied.
// Unknown events are logged and skipped. An event referencing a missing tile or unit
// means the replica has diverged, and ends the run.
func (r *Runner) Run(ctx context.Context, src transport.Source) (Stats, error) {
	var st Stats
	for {
		env, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			r.logger.Info("Replay finished",
				"envelopes", st.Envelopes, "events", st.Events, "skipped", st.Skipped)
			return st, nil
		}
		if err != nil {
			return st, fmt.Errorf("reading envelope %d: %w", st.Envelopes+1, err)
		}
		st.Envelopes++

		if err := r.apply(env, &st); err != nil {
			return st, fmt.Errorf("envelope %d (%s): %w", st.Envelopes, env.Type, err)
		}
	}
}

func (r *Runner) apply(env streaming.Envelope, st *Stats) error {
	switch env.Type {
	case streaming.TypeRules:
		rs, err := r.parser.ParseRules(env.Payload)
		if err != nil {
			return err
		}
		r.engine.SetRules(rs)
		st.Rules++
	case streaming.TypeGameData:
		snap, err := r.parser.ParseGameData(env.Payload)
		if err != nil {
			return err
		}
		if err := r.engine.LoadGameData(snap); err != nil {
			return err
		}
		st.Snapshots++
	case streaming.TypeEvent:
		events, err := r.events(env.Payload, st)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := r.applyEvent(ev, st); err != nil {
				return err
			}
		}
	default:
		r.logger.Warn("Skipping unknown envelope", "type", env.Type)
		st.Skipped++
	}
	return nil
}

// events accepts one event object or an array of them.
func (r *Runner) events(payload []byte, st *Stats) ([]core.Event, error) {
	if trimmed := bytes.TrimSpace(payload); len(trimmed) > 0 && trimmed[0] == '[' {
		return r.parser.ParseEventBatch(trimmed)
	}
	ev, err := r.parser.ParseEvent(payload)
	if errors.Is(err, parser.ErrUnknownEvent) {
		r.logger.Warn("Skipping unknown event", "error", err)
		st.Skipped++
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []core.Event{ev}, nil
}

func (r *Runner) applyEvent(ev core.Event, st *Stats) error {
	err := r.engine.Apply(ev)
	if errors.Is(err, dispatcher.ErrUnknownEvent) {
		r.logger.Warn("Skipping unhandled event", "kind", string(ev.Kind()))
		st.Skipped++
		return nil
	}
	if err != nil {
		return fmt.Errorf("applying %s: %w", ev.Kind(), err)
	}
	st.Events++

	if r.strict {
		if err := r.engine.State().Validate(); err != nil {
			return fmt.Errorf("after %s: %w", ev.Kind(), err)
		}
	}
	return nil
}
