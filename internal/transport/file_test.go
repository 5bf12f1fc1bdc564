package transport

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hexwars/replica/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const session = `{"type":"rules","payload":{"units":{}}}

{"type":"gamedata","payload":{"gameId":"g1"}}
{"type":"event","payload":{"action":"wait","unit":"u1"}}
`

func source(s string) *FileSource {
	return NewFileSource(io.NopCloser(strings.NewReader(s)))
}

func TestFileSourceOrder(t *testing.T) {
	src := source(session)
	defer src.Close()
	ctx := context.Background()

	var types []string
	for {
		env, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		types = append(types, env.Type)
	}
	assert.Equal(t, []string{streaming.TypeRules, streaming.TypeGameData, streaming.TypeEvent}, types)
	assert.Equal(t, 4, src.Line())

	_, err := src.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestFileSourceErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not json", "{\"type\":\"rules\",\"payload\":{}}\nnope\n", "line 2: invalid envelope"},
		{"no type", `{"payload":{}}`, "line 1: envelope without type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := source(tt.input)
			var err error
			for err == nil {
				_, err = src.Next(context.Background())
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestFileSourceClosed(t *testing.T) {
	src := source(session)
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFileSourceContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source(session).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(session), 0644))

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()

	env, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, streaming.TypeRules, env.Type)
	assert.JSONEq(t, `{"units":{}}`, string(env.Payload))

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}
