// Package engine replays the authoritative event log onto the world state.
//
// Every event is applied in three steps: referenced entities are resolved, the event is
// published on Events, and only then is the state mutated. Subscribers therefore see the
// state as it was before the event and read the new values from the event itself.
// A failed lookup aborts the event before anything is published.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/hexwars/replica/internal/combat"
	"github.com/hexwars/replica/internal/dispatcher"
	"github.com/hexwars/replica/internal/notify"
	"github.com/hexwars/replica/internal/pathfinding"
	"github.com/hexwars/replica/internal/rules"
	"github.com/hexwars/replica/internal/world"
	"github.com/hexwars/replica/pkg/core"
)

var (
	// ErrNoRules is returned by queries that need a ruleset before SetRules was called.
	ErrNoRules = errors.New("no ruleset loaded")
	// ErrEventType is returned when an event value does not match the handler of its kind.
	ErrEventType = errors.New("unexpected event type")
)

// Engine owns one ruleset and one world state. It is not safe for concurrent use,
// except for Header.
type Engine struct {
	rules    *rules.Ruleset
	state    *world.State
	finder   *pathfinding.Finder
	resolver *combat.Resolver

	events   *notify.Stream[core.Event]
	ready    *notify.Promise[core.GameInfo]
	dispatch *dispatcher.Dispatcher

	logger      *slog.Logger
	handlerLog  dispatcher.Logger
	logHandlers bool

	// header is a copy of the game metadata taken after every state change.
	header atomic.Pointer[core.GameInfo]
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithHandlerLogging logs every applied event through l.
func WithHandlerLogging(l dispatcher.Logger) Option {
	return func(e *Engine) {
		e.handlerLog = l
		e.logHandlers = true
	}
}

// New creates an engine with an empty state and no ruleset.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		state:  world.New(),
		events: notify.NewStream[core.Event](),
		ready:  notify.NewPromise[core.GameInfo](),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.handlerLog == nil {
		e.handlerLog = slogAdapter{e.logger}
	}

	d, err := dispatcher.New(e.handlerLog)
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	e.dispatch = d
	e.registerHandlers()
	e.rebind()
	e.storeHeader()

	return e, nil
}

func (e *Engine) rebind() {
	e.finder = pathfinding.New(e.state, e.rules)
	e.resolver = combat.New(e.state, e.rules)
}

// SetRules installs the ruleset used by every later query.
func (e *Engine) SetRules(r *rules.Ruleset) {
	e.rules = r
	e.rebind()
	if r != nil {
		e.logger.Info("rules loaded", "sections", r.Counts())
	}
}

// Rules returns the current ruleset, nil before SetRules.
func (e *Engine) Rules() *rules.Ruleset {
	return e.rules
}

// LoadGameData replaces the state with the snapshot, publishes one GameDataEvent and
// fulfils Ready. Ready fires only for the first snapshot.
func (e *Engine) LoadGameData(snap world.Snapshot) error {
	if err := e.state.Load(snap); err != nil {
		return fmt.Errorf("loading game data: %w", err)
	}
	e.storeHeader()
	info := e.state.Info()
	e.logger.Info("game data loaded",
		"gameId", info.GameID,
		"tiles", len(snap.Tiles),
		"units", len(snap.Units),
		"players", len(snap.Players))

	e.events.Push(core.GameDataEvent{GameID: info.GameID})
	e.ready.Fulfill(info)
	return nil
}

// Events is the notification stream. Callbacks run synchronously inside Apply.
func (e *Engine) Events() *notify.Stream[core.Event] {
	return e.events
}

// Ready is fulfilled with the game metadata once the first snapshot is loaded.
func (e *Engine) Ready() *notify.Promise[core.GameInfo] {
	return e.ready
}

// State exposes the world state for read-only use by collaborators such as validators.
func (e *Engine) State() *world.State {
	return e.state
}

// Apply applies one event. Unknown kinds return dispatcher.ErrUnknownEvent and change nothing.
func (e *Engine) Apply(ev core.Event) error {
	err := e.dispatch.Dispatch(ev)
	e.storeHeader()
	return err
}

func (e *Engine) storeHeader() {
	info := e.state.Info()
	info.Settings.BannedUnits = slices.Clone(info.Settings.BannedUnits)
	e.header.Store(&info)
}

// Header returns the game metadata as of the last Apply or LoadGameData.
// It is the one method safe to call from any goroutine.
func (e *Engine) Header() core.GameInfo {
	info := *e.header.Load()
	info.Settings.BannedUnits = slices.Clone(info.Settings.BannedUnits)
	return info
}

func (e *Engine) publish(ev core.Event) {
	e.events.Push(core.CloneEvent(ev))
}

// slogAdapter satisfies dispatcher.Logger with a slog logger.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(msg string, kv ...any) { a.l.Debug(msg, kv...) }
func (a slogAdapter) Info(msg string, kv ...any)  { a.l.Info(msg, kv...) }
func (a slogAdapter) Error(msg string, kv ...any) { a.l.Error(msg, kv...) }
