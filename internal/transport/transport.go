// Package transport delivers session envelopes in arrival order. It does not decode payloads.
package transport

import (
	"context"
	"errors"

	"github.com/hexwars/replica/pkg/streaming"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("transport closed")

// Source yields envelopes until io.EOF.
type Source interface {
	Next(ctx context.Context) (streaming.Envelope, error)
	Close() error
}
