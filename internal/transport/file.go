package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hexwars/replica/pkg/streaming"
)

// maxLine bounds one envelope; gamedata for large maps runs to a few megabytes.
const maxLine = 32 << 20

// FileSource reads a session recorded as JSON lines, one envelope per line.
// Blank lines are skipped.
type FileSource struct {
	mu      sync.Mutex
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
	closed  bool
}

// OpenFile opens a session file. "-" reads stdin.
func OpenFile(path string) (*FileSource, error) {
	if path == "-" {
		return NewFileSource(io.NopCloser(os.Stdin)), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	return NewFileSource(f), nil
}

func NewFileSource(r io.ReadCloser) *FileSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &FileSource{closer: r, scanner: sc}
}

func (s *FileSource) Next(ctx context.Context) (streaming.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed {
			return streaming.Envelope{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return streaming.Envelope{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return streaming.Envelope{}, fmt.Errorf("line %d: %w", s.line+1, err)
			}
			return streaming.Envelope{}, io.EOF
		}
		s.line++

		raw := bytes.TrimSpace(s.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var env streaming.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return streaming.Envelope{}, fmt.Errorf("line %d: invalid envelope: %w", s.line, err)
		}
		if env.Type == "" {
			return streaming.Envelope{}, fmt.Errorf("line %d: envelope without type", s.line)
		}
		return env, nil
	}
}

// Line is the number of the last line read.
func (s *FileSource) Line() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.line
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.closer.Close()
}
