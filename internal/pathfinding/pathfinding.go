// Package pathfinding searches the tile graph. All searches expand the cheapest open node first.
package pathfinding

import (
	"fmt"
	"slices"

	"github.com/hexwars/replica/internal/combat"
	"github.com/hexwars/replica/internal/geo"
	"github.com/hexwars/replica/internal/queue"
	"github.com/hexwars/replica/internal/rules"
	"github.com/hexwars/replica/internal/world"
	"github.com/hexwars/replica/pkg/core"
)

// tieScale separates accumulated cost from the heuristic in a single queue priority.
// Maps are far smaller than this many steps across.
const tieScale = 1 << 16

// Finder runs searches over one state and ruleset.
type Finder struct {
	state *world.State
	rules *rules.Ruleset
}

// New creates a finder reading s and r.
func New(s *world.State, r *rules.Ruleset) *Finder {
	return &Finder{state: s, rules: r}
}

// ShortestPath returns the tile coordinates from a to b, both included, using unit step costs.
// Terrain and occupancy are ignored. The path is nil when a or b is off the map or disconnected.
func (f *Finder) ShortestPath(a, b core.Position) []core.Position {
	if _, ok := f.state.TileAt(a); !ok {
		return nil
	}
	if _, ok := f.state.TileAt(b); !ok {
		return nil
	}

	return f.search(a, &b, func(from, to core.Position, g int) (int, bool) {
		if _, ok := f.state.TileAt(to); !ok {
			return 0, false
		}
		return g + 1, true
	}).path(b)
}

// UnitPath returns the cheapest path the unit can take to dest within its movement allowance.
// Tiles held by units not allied with the mover cannot be entered.
func (f *Finder) UnitPath(unitID string, dest core.Position) ([]core.Position, error) {
	start, step, err := f.unitSearch(unitID)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, nil
	}
	if _, ok := f.state.TileAt(dest); !ok {
		return nil, nil
	}
	return f.search(*start, &dest, step).path(dest), nil
}

// MovementOptions returns every coordinate the unit can end its move on, its own tile included.
// Tiles held by another unit are kept only if that unit can carry the mover.
func (f *Finder) MovementOptions(unitID string) ([]core.Position, error) {
	start, step, err := f.unitSearch(unitID)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, nil
	}

	mover, _ := f.state.Unit(unitID)
	res := f.search(*start, nil, step)

	var out []core.Position
	for _, p := range res.order {
		t, _ := f.state.TileAt(p)
		if t.UnitID != "" && t.UnitID != unitID {
			occupant, err := f.state.Unit(t.UnitID)
			if err != nil || !combat.CanCarry(f.rules, *occupant, *mover) {
				continue
			}
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b core.Position) int {
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
	return out, nil
}

// stepFunc returns the accumulated cost of entering to from from, or false if it cannot be entered.
type stepFunc func(from, to core.Position, g int) (int, bool)

// unitSearch resolves the mover and builds its step function. start is nil for carried units.
func (f *Finder) unitSearch(unitID string) (*core.Position, stepFunc, error) {
	mover, err := f.state.Unit(unitID)
	if err != nil {
		return nil, nil, err
	}
	if mover.TileID == "" {
		return nil, nil, nil
	}
	own, err := f.state.Tile(mover.TileID)
	if err != nil {
		return nil, nil, err
	}
	ut, ok := f.rules.UnitType(mover.Type)
	if !ok {
		return nil, nil, fmt.Errorf("unit type %d of %q: %w", mover.Type, mover.ID, rules.ErrNotFound)
	}
	mt, ok := f.rules.MovementType(ut.MovementType)
	if !ok {
		return nil, nil, fmt.Errorf("movement type %d of unit type %d: %w", ut.MovementType, ut.ID, rules.ErrNotFound)
	}

	owner := mover.Owner
	allowance := ut.Movement
	step := func(from, to core.Position, g int) (int, bool) {
		t, ok := f.state.TileAt(to)
		if !ok {
			return 0, false
		}
		cost, ok := mt.Cost(t.Type)
		if !ok || g+cost > allowance {
			return 0, false
		}
		if t.UnitID != "" {
			occupant, err := f.state.Unit(t.UnitID)
			if err != nil || !f.state.AreAllies(owner, occupant.Owner) {
				return 0, false
			}
		}
		return g + cost, true
	}

	start := own.Position()
	return &start, step, nil
}

type result struct {
	start core.Position
	came  map[core.Position]core.Position
	costs map[core.Position]int
	order []core.Position // settled nodes in expansion order
}

// path walks the backpointers from goal. It is nil when goal was never reached.
func (r result) path(goal core.Position) []core.Position {
	if _, ok := r.costs[goal]; !ok {
		return nil
	}
	out := []core.Position{goal}
	for p := goal; p != r.start; {
		p = r.came[p]
		out = append(out, p)
	}
	slices.Reverse(out)
	return out
}

// search is a best-first search from start. With a goal it stops once the goal is settled and
// breaks cost ties towards the goal; without one it settles everything reachable.
func (f *Finder) search(start core.Position, goal *core.Position, step stepFunc) result {
	res := result{
		start: start,
		came:  make(map[core.Position]core.Position),
		costs: map[core.Position]int{start: 0},
	}
	closed := make(map[core.Position]bool)

	h := func(p core.Position) int {
		if goal == nil {
			return 0
		}
		return geo.Distance(p, *goal)
	}

	open := queue.NewPriority[core.Position]()
	open.Push(start, h(start))

	for !open.Empty() {
		cur, _, _ := open.Pop()
		if closed[cur] {
			continue
		}
		closed[cur] = true
		res.order = append(res.order, cur)

		if goal != nil && cur == *goal {
			break
		}

		g := res.costs[cur]
		for _, n := range geo.Neighbors(cur) {
			if closed[n] {
				continue
			}
			ng, ok := step(cur, n, g)
			if !ok {
				continue
			}
			if old, seen := res.costs[n]; seen && old <= ng {
				continue
			}
			res.costs[n] = ng
			res.came[n] = cur
			open.Push(n, ng*tieScale+h(n))
		}
	}

	if goal != nil && !closed[*goal] {
		delete(res.costs, *goal)
	}
	return res
}
