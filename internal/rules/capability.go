package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Capability is a set of rule flags resolved from their names when the ruleset is built.
type Capability uint32

const (
	// UnitCapture lets a unit capture tiles.
	UnitCapture Capability = 1 << iota
	// TerrainCapturable marks terrain that can change owner.
	TerrainCapturable
	// TerrainFunds marks terrain that produces funds for its owner.
	TerrainFunds
)

// ErrUnknownFlag is returned when a type references a flag id missing from its flag table.
var ErrUnknownFlag = errors.New("unknown flag")

var unitCapabilities = map[string]Capability{
	"Capture": UnitCapture,
}

var terrainCapabilities = map[string]Capability{
	"Capturable": TerrainCapturable,
	"Funds":      TerrainFunds,
}

var capabilityNames = []struct {
	c    Capability
	name string
}{
	{UnitCapture, "Capture"},
	{TerrainCapturable, "Capturable"},
	{TerrainFunds, "Funds"},
}

// Has reports whether every capability in c2 is set.
func (c Capability) Has(c2 Capability) bool {
	return c&c2 == c2
}

func (c Capability) String() string {
	var parts []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// resolve maps flag ids to capabilities. Flags without a known capability are kept only as ids.
func resolve(flags IntSet, name func(int) (string, bool), known map[string]Capability) (Capability, error) {
	var caps Capability
	for id := range flags {
		n, ok := name(id)
		if !ok {
			return 0, fmt.Errorf("flag %d: %w", id, ErrUnknownFlag)
		}
		caps |= known[n]
	}
	return caps, nil
}
