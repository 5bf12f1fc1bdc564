package world

import (
	"errors"
	"fmt"
)

// ErrInconsistent wraps every invariant violation reported by Validate.
var ErrInconsistent = errors.New("inconsistent state")

// Validate checks the occupancy and carrier invariants and returns all violations joined.
func (s *State) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInconsistent}, args...)...))
	}

	for _, t := range s.Tiles() {
		if t.UnitID == "" {
			continue
		}
		u, ok := s.units[t.UnitID]
		if !ok {
			fail("tile %q holds missing unit %q", t.ID, t.UnitID)
			continue
		}
		if u.TileID != t.ID {
			fail("tile %q holds unit %q which is on %q", t.ID, u.ID, u.TileID)
		}
	}

	for _, u := range s.Units() {
		if u.TileID != "" && u.CarriedBy != "" {
			fail("unit %q is both on tile %q and carried by %q", u.ID, u.TileID, u.CarriedBy)
		}
		if u.TileID != "" {
			t, ok := s.tiles[u.TileID]
			switch {
			case !ok:
				fail("unit %q is on missing tile %q", u.ID, u.TileID)
			case t.UnitID != u.ID:
				fail("unit %q is on tile %q which holds %q", u.ID, t.ID, t.UnitID)
			}
		}
		if u.CarriedBy != "" {
			c, ok := s.units[u.CarriedBy]
			if !ok {
				fail("unit %q is carried by missing unit %q", u.ID, u.CarriedBy)
			} else if n := count(c.CarriedUnits, u.ID); n != 1 {
				fail("unit %q appears %d times in carrier %q", u.ID, n, c.ID)
			}
		}
		for _, id := range u.CarriedUnits {
			cu, ok := s.units[id]
			if !ok {
				fail("unit %q carries missing unit %q", u.ID, id)
				continue
			}
			if cu.CarriedBy != u.ID {
				fail("unit %q carries %q which names carrier %q", u.ID, id, cu.CarriedBy)
			}
		}
	}

	return errors.Join(errs...)
}

func count(ids []string, id string) int {
	n := 0
	for _, i := range ids {
		if i == id {
			n++
		}
	}
	return n
}
