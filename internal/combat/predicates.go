package combat

import (
	"github.com/hexwars/replica/internal/geo"
	"github.com/hexwars/replica/internal/rules"
	"github.com/hexwars/replica/pkg/core"
)

// FullHealth is the health of an undamaged unit.
const FullHealth = 100

// CanCarry reports whether carrier has room for unit under the ruleset.
// It does not look at where either unit currently is.
func CanCarry(r *rules.Ruleset, carrier, unit core.Unit) bool {
	if carrier.ID == unit.ID || carrier.Owner != unit.Owner {
		return false
	}
	ct, ok := r.UnitType(carrier.Type)
	if !ok {
		return false
	}
	ut, ok := r.UnitType(unit.Type)
	if !ok {
		return false
	}
	return ct.CanCarryClass(ut.Class) && len(carrier.CarriedUnits) < ct.CarryNum
}

func freeFor(t core.Tile, unitID string) bool {
	return t.UnitID == "" || t.UnitID == unitID
}

// CanLoadInto reports whether unit may board carrier.
func (c *Resolver) CanLoadInto(unit, carrier core.Unit) bool {
	return unit.CarriedBy == "" && CanCarry(c.rules, carrier, unit)
}

// CanAttackFromTile reports whether unit standing on tile would have a target.
func (c *Resolver) CanAttackFromTile(unit core.Unit, tile core.Tile) bool {
	return freeFor(tile, unit.ID) && len(c.AttackOptions(unit, tile.Position())) > 0
}

// CanCaptureTile reports whether unit standing on tile may capture it.
func (c *Resolver) CanCaptureTile(unit core.Unit, tile core.Tile) bool {
	if !freeFor(tile, unit.ID) {
		return false
	}
	ut, ok := c.rules.UnitType(unit.Type)
	if !ok || !ut.Caps.Has(rules.UnitCapture) {
		return false
	}
	tt, ok := c.rules.Terrain(tile.Type)
	if !ok || !tt.Caps.Has(rules.TerrainCapturable) {
		return false
	}
	return !c.state.AreAllies(unit.Owner, tile.Owner)
}

// CanDeployAtTile reports whether unit may deploy once standing on tile.
func (c *Resolver) CanDeployAtTile(unit core.Unit, tile core.Tile) bool {
	if unit.Deployed || !freeFor(tile, unit.ID) {
		return false
	}
	ut, ok := c.rules.UnitType(unit.Type)
	if !ok {
		return false
	}
	for _, w := range c.rules.Weapons(ut) {
		if w.RequireDeployed {
			return true
		}
	}
	return false
}

// CanUndeploy reports whether unit is deployed.
func (c *Resolver) CanUndeploy(unit core.Unit) bool {
	return unit.Deployed
}

// CanUnloadAtTile reports whether carrier standing on tile could drop at least one carried unit.
func (c *Resolver) CanUnloadAtTile(carrier core.Unit, tile core.Tile) bool {
	if len(carrier.CarriedUnits) == 0 || !freeFor(tile, carrier.ID) {
		return false
	}
	for _, id := range carrier.CarriedUnits {
		u, err := c.state.Unit(id)
		if err != nil {
			continue
		}
		for _, n := range geo.Neighbors(tile.Position()) {
			if c.CanUnloadUnitTo(*u, tile.Position(), n) {
				return true
			}
		}
	}
	return false
}

// CanUnloadUnitTo reports whether a carried unit may leave a carrier at from onto the tile at to.
func (c *Resolver) CanUnloadUnitTo(unit core.Unit, from, to core.Position) bool {
	if unit.CarriedBy == "" || !geo.Adjacent(from, to) {
		return false
	}
	dest, ok := c.state.TileAt(to)
	if !ok || dest.Occupied() {
		return false
	}
	ut, ok := c.rules.UnitType(unit.Type)
	if !ok {
		return false
	}
	mt, ok := c.rules.MovementType(ut.MovementType)
	if !ok {
		return false
	}
	cost, ok := mt.Cost(dest.Type)
	return ok && cost <= ut.Movement
}

// CanBuildAt reports whether player may build a unit of unitType on tile.
func (c *Resolver) CanBuildAt(tile core.Tile, unitType, player int) bool {
	if tile.Occupied() || tile.Owner != player || player == core.NeutralPlayer {
		return false
	}
	ut, ok := c.rules.UnitType(unitType)
	if !ok || c.state.Info().IsBanned(unitType) {
		return false
	}
	tt, ok := c.rules.Terrain(tile.Type)
	if !ok || !tt.BuildTypes.Has(ut.Class) {
		return false
	}
	p, err := c.state.Player(player)
	if err != nil {
		return false
	}
	return p.Funds >= ut.Price
}

// BuildOptions returns the unit types player may build on tile, ordered by id.
func (c *Resolver) BuildOptions(tile core.Tile, player int) []rules.UnitType {
	var out []rules.UnitType
	for _, ut := range c.rules.UnitTypes() {
		if c.CanBuildAt(tile, ut.ID, player) {
			out = append(out, ut)
		}
	}
	return out
}

// CanRepairAt reports whether a damaged unit on its owner's tile can be repaired there.
func (c *Resolver) CanRepairAt(unit core.Unit, tile core.Tile) bool {
	if unit.Health >= FullHealth || tile.UnitID != unit.ID || tile.Owner != unit.Owner {
		return false
	}
	ut, ok := c.rules.UnitType(unit.Type)
	if !ok {
		return false
	}
	tt, ok := c.rules.Terrain(tile.Type)
	return ok && tt.RepairTypes.Has(ut.Class)
}
