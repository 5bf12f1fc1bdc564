package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

var (
	// ErrUnknownEvent is returned for an event payload whose action has no decoder.
	ErrUnknownEvent = errors.New("unknown event action")
	// ErrInvalidPayload is returned when a payload is well-formed JSON but not a valid record.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Parser provides pure []byte -> domain struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// parseIntKey parses an object key that may be an integer ("32") or float ("32.00").
// Some serializers stringify numeric map keys with a fraction.
func parseIntKey(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("parseIntKey: %q is not a valid int", s)
	}
	return int(f), nil
}

// intMap converts a JSON object keyed by stringified ints.
func intMap(m map[string]int) (map[int]int, error) {
	out := make(map[int]int, len(m))
	for k, v := range m {
		key, err := parseIntKey(k)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func isUnknown(err error) bool {
	return errors.Is(err, ErrUnknownEvent)
}
