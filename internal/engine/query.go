package engine

import (
	"github.com/hexwars/replica/internal/geo"
	"github.com/hexwars/replica/internal/rules"
	"github.com/hexwars/replica/pkg/core"
)

// Lookups return copies. Failing lookups wrap world.ErrNotFound.

func (e *Engine) Tile(id string) (core.Tile, error) {
	t, err := e.state.Tile(id)
	if err != nil {
		return core.Tile{}, err
	}
	return *t, nil
}

func (e *Engine) TileAt(p core.Position) (core.Tile, bool) {
	t, ok := e.state.TileAt(p)
	if !ok {
		return core.Tile{}, false
	}
	return *t, true
}

func (e *Engine) Unit(id string) (core.Unit, error) {
	u, err := e.state.Unit(id)
	if err != nil {
		return core.Unit{}, err
	}
	return u.Clone(), nil
}

func (e *Engine) Player(number int) (core.Player, error) {
	p, err := e.state.Player(number)
	if err != nil {
		return core.Player{}, err
	}
	return *p, nil
}

func (e *Engine) Tiles() []core.Tile {
	tiles := e.state.Tiles()
	out := make([]core.Tile, len(tiles))
	for i, t := range tiles {
		out[i] = *t
	}
	return out
}

func (e *Engine) Units() []core.Unit {
	units := e.state.Units()
	out := make([]core.Unit, len(units))
	for i, u := range units {
		out[i] = u.Clone()
	}
	return out
}

func (e *Engine) Players() []core.Player {
	players := e.state.Players()
	out := make([]core.Player, len(players))
	for i, p := range players {
		out[i] = *p
	}
	return out
}

// Info returns the game metadata, including the player in turn.
func (e *Engine) Info() core.GameInfo {
	return e.state.Info()
}

func (e *Engine) Distance(a, b core.Position) int {
	return geo.Distance(a, b)
}

func (e *Engine) AreAllies(a, b int) bool {
	return e.state.AreAllies(a, b)
}

// FindShortestPath ignores terrain and units. It needs no ruleset.
func (e *Engine) FindShortestPath(a, b core.Position) []core.Position {
	return e.finder.ShortestPath(a, b)
}

func (e *Engine) FindUnitPath(unitID string, dest core.Position) ([]core.Position, error) {
	if e.rules == nil {
		return nil, ErrNoRules
	}
	return e.finder.UnitPath(unitID, dest)
}

func (e *Engine) FindMovementOptions(unitID string) ([]core.Position, error) {
	if e.rules == nil {
		return nil, ErrNoRules
	}
	return e.finder.MovementOptions(unitID)
}

func (e *Engine) WeaponPower(weaponID, armor, distance int) (int, bool) {
	if e.rules == nil {
		return 0, false
	}
	return e.resolver.WeaponPower(weaponID, armor, distance)
}

// AttackDamage reports the damage attacker would deal to target across distance on terrain.
func (e *Engine) AttackDamage(attackerID, targetID string, distance, terrain int) (int, bool, error) {
	if e.rules == nil {
		return 0, false, ErrNoRules
	}
	a, err := e.state.Unit(attackerID)
	if err != nil {
		return 0, false, err
	}
	t, err := e.state.Unit(targetID)
	if err != nil {
		return 0, false, err
	}
	dmg, ok := e.resolver.AttackDamage(*a, *t, distance, terrain)
	return dmg, ok, nil
}

func (e *Engine) AttackOptions(unitID string, pos core.Position) (map[string]int, error) {
	if e.rules == nil {
		return nil, ErrNoRules
	}
	u, err := e.state.Unit(unitID)
	if err != nil {
		return nil, err
	}
	return e.resolver.AttackOptions(*u, pos), nil
}

func (e *Engine) CanLoadInto(unitID, carrierID string) (bool, error) {
	if e.rules == nil {
		return false, ErrNoRules
	}
	u, err := e.state.Unit(unitID)
	if err != nil {
		return false, err
	}
	c, err := e.state.Unit(carrierID)
	if err != nil {
		return false, err
	}
	return e.resolver.CanLoadInto(*u, *c), nil
}

func (e *Engine) CanAttackFromTile(unitID, tileID string) (bool, error) {
	return e.unitTile(unitID, tileID, func(u core.Unit, t core.Tile) bool {
		return e.resolver.CanAttackFromTile(u, t)
	})
}

func (e *Engine) CanCaptureTile(unitID, tileID string) (bool, error) {
	return e.unitTile(unitID, tileID, func(u core.Unit, t core.Tile) bool {
		return e.resolver.CanCaptureTile(u, t)
	})
}

func (e *Engine) CanDeployAtTile(unitID, tileID string) (bool, error) {
	return e.unitTile(unitID, tileID, func(u core.Unit, t core.Tile) bool {
		return e.resolver.CanDeployAtTile(u, t)
	})
}

func (e *Engine) CanUndeploy(unitID string) (bool, error) {
	u, err := e.state.Unit(unitID)
	if err != nil {
		return false, err
	}
	return e.resolver.CanUndeploy(*u), nil
}

func (e *Engine) CanUnloadAtTile(carrierID, tileID string) (bool, error) {
	return e.unitTile(carrierID, tileID, func(c core.Unit, t core.Tile) bool {
		return e.resolver.CanUnloadAtTile(c, t)
	})
}

// CanUnloadUnitTo reports whether a carried unit could leave a carrier standing at from onto to.
func (e *Engine) CanUnloadUnitTo(unitID string, from, to core.Position) (bool, error) {
	if e.rules == nil {
		return false, ErrNoRules
	}
	u, err := e.state.Unit(unitID)
	if err != nil {
		return false, err
	}
	return e.resolver.CanUnloadUnitTo(*u, from, to), nil
}

func (e *Engine) CanBuildAt(tileID string, unitType, player int) (bool, error) {
	if e.rules == nil {
		return false, ErrNoRules
	}
	t, err := e.state.Tile(tileID)
	if err != nil {
		return false, err
	}
	return e.resolver.CanBuildAt(*t, unitType, player), nil
}

func (e *Engine) BuildOptions(tileID string, player int) ([]rules.UnitType, error) {
	if e.rules == nil {
		return nil, ErrNoRules
	}
	t, err := e.state.Tile(tileID)
	if err != nil {
		return nil, err
	}
	return e.resolver.BuildOptions(*t, player), nil
}

func (e *Engine) CanRepairAt(unitID, tileID string) (bool, error) {
	return e.unitTile(unitID, tileID, func(u core.Unit, t core.Tile) bool {
		return e.resolver.CanRepairAt(u, t)
	})
}

func (e *Engine) unitTile(unitID, tileID string, pred func(core.Unit, core.Tile) bool) (bool, error) {
	if e.rules == nil {
		return false, ErrNoRules
	}
	u, err := e.state.Unit(unitID)
	if err != nil {
		return false, err
	}
	t, err := e.state.Tile(tileID)
	if err != nil {
		return false, err
	}
	return pred(*u, *t), nil
}
