package logging

import (
	"context"
	"log/slog"

	"github.com/hexwars/replica/pkg/core"
)

// ContextProvider returns attributes evaluated at log time.
type ContextProvider func() []slog.Attr

// GameContext reports the current game id, turn and player in turn.
// Nothing is added before a game is loaded.
func GameContext(info func() core.GameInfo) ContextProvider {
	return func() []slog.Attr {
		gi := info()
		if gi.GameID == "" {
			return nil
		}
		return []slog.Attr{
			slog.String("game", gi.GameID),
			slog.Int("turn", gi.TurnNumber),
			slog.Int("inTurn", gi.InTurnNumber),
		}
	}
}

// ContextHandler adds the provider's attributes to each record.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		if attrs := h.provider(); len(attrs) > 0 {
			r = r.Clone()
			r.AddAttrs(attrs...)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
