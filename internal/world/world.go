// Package world holds the mutable game state: tiles, units and players.
package world

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hexwars/replica/pkg/core"
)

var (
	// ErrNotFound is returned when a tile, unit or player id is not part of the state.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when adding an entity whose id is already taken.
	ErrDuplicate = errors.New("duplicate id")
)

// Snapshot is the decoded content of a gamedata payload.
// Units are flat; carried units reference their carrier through CarriedBy.
type Snapshot struct {
	Info    core.GameInfo
	Tiles   []core.Tile
	Units   []core.Unit
	Players []core.Player
}

// State is the replicated world. It is not safe for concurrent use.
//
// Pointers returned by lookups refer to live entries and are invalidated by RemoveUnit.
type State struct {
	info    core.GameInfo
	tiles   map[string]*core.Tile
	units   map[string]*core.Unit
	players map[int]*core.Player
	coords  map[core.Position]string
}

// New returns an empty state.
func New() *State {
	return &State{
		tiles:   make(map[string]*core.Tile),
		units:   make(map[string]*core.Unit),
		players: make(map[int]*core.Player),
		coords:  make(map[core.Position]string),
	}
}

// Load replaces the whole state with the snapshot content.
func (s *State) Load(snap Snapshot) error {
	fresh := New()
	fresh.info = snap.Info

	for _, t := range snap.Tiles {
		if _, ok := fresh.tiles[t.ID]; ok {
			return fmt.Errorf("tile %q: %w", t.ID, ErrDuplicate)
		}
		if other, ok := fresh.coords[t.Position()]; ok {
			return fmt.Errorf("tile %q shares (%d,%d) with %q: %w", t.ID, t.X, t.Y, other, ErrDuplicate)
		}
		tile := t
		fresh.tiles[t.ID] = &tile
		fresh.coords[t.Position()] = t.ID
	}

	for _, u := range snap.Units {
		if err := fresh.AddUnit(u); err != nil {
			return err
		}
	}

	for _, p := range snap.Players {
		if _, ok := fresh.players[p.Number]; ok {
			return fmt.Errorf("player %d: %w", p.Number, ErrDuplicate)
		}
		player := p
		fresh.players[p.Number] = &player
	}

	*s = *fresh
	return nil
}

// Info returns the game metadata.
func (s *State) Info() core.GameInfo {
	return s.info
}

// InTurn returns the number of the player whose turn it is.
func (s *State) InTurn() int {
	return s.info.InTurnNumber
}

// SetInTurn records the player in turn.
func (s *State) SetInTurn(player int) {
	s.info.InTurnNumber = player
}

// SetGameState changes the lifecycle state.
func (s *State) SetGameState(st core.GameState) {
	s.info.State = st
}

// Tile returns the tile with the given id.
func (s *State) Tile(id string) (*core.Tile, error) {
	t, ok := s.tiles[id]
	if !ok {
		return nil, fmt.Errorf("tile %q: %w", id, ErrNotFound)
	}
	return t, nil
}

// TileAt returns the tile at p, if the map has one there.
func (s *State) TileAt(p core.Position) (*core.Tile, bool) {
	id, ok := s.coords[p]
	if !ok {
		return nil, false
	}
	return s.tiles[id], true
}

// Unit returns the unit with the given id.
func (s *State) Unit(id string) (*core.Unit, error) {
	u, ok := s.units[id]
	if !ok {
		return nil, fmt.Errorf("unit %q: %w", id, ErrNotFound)
	}
	return u, nil
}

// HasUnit reports whether a unit with the given id exists.
func (s *State) HasUnit(id string) bool {
	_, ok := s.units[id]
	return ok
}

// Player returns the player with the given number.
func (s *State) Player(number int) (*core.Player, error) {
	p, ok := s.players[number]
	if !ok {
		return nil, fmt.Errorf("player %d: %w", number, ErrNotFound)
	}
	return p, nil
}

// Tiles returns all tiles ordered by id.
func (s *State) Tiles() []*core.Tile {
	out := make([]*core.Tile, 0, len(s.tiles))
	for _, t := range s.tiles {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *core.Tile) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Units returns all units ordered by id.
func (s *State) Units() []*core.Unit {
	out := make([]*core.Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b *core.Unit) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Players returns all players ordered by number.
func (s *State) Players() []*core.Player {
	out := make([]*core.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *core.Player) int { return a.Number - b.Number })
	return out
}

// AddUnit registers a copy of u. Tile occupancy and carrier lists are not touched.
func (s *State) AddUnit(u core.Unit) error {
	if _, ok := s.units[u.ID]; ok {
		return fmt.Errorf("unit %q: %w", u.ID, ErrDuplicate)
	}
	unit := u.Clone()
	s.units[u.ID] = &unit
	return nil
}

// RemoveUnit drops the unit record. It does not touch tiles or carriers.
func (s *State) RemoveUnit(id string) {
	delete(s.units, id)
}

// Occupy places unitID on the tile and points the unit back at it.
func (s *State) Occupy(tileID, unitID string) error {
	t, err := s.Tile(tileID)
	if err != nil {
		return err
	}
	u, err := s.Unit(unitID)
	if err != nil {
		return err
	}
	t.UnitID = unitID
	u.TileID = tileID
	return nil
}

// Vacate clears the occupant slot of the tile, if any.
func (s *State) Vacate(tileID string) {
	if t, ok := s.tiles[tileID]; ok {
		t.UnitID = ""
	}
}

// AreAllies reports whether two player numbers are on the same side.
// The neutral player is allied only with itself. Unknown players are allied with nobody else.
func (s *State) AreAllies(a, b int) bool {
	if a == b {
		return true
	}
	if a == core.NeutralPlayer || b == core.NeutralPlayer {
		return false
	}
	pa, okA := s.players[a]
	pb, okB := s.players[b]
	if !okA || !okB {
		return false
	}
	return pa.Team == pb.Team
}
