// Package combat answers damage and legality questions. Nothing here mutates state.
package combat

import (
	"math"

	"github.com/hexwars/replica/internal/geo"
	"github.com/hexwars/replica/internal/rules"
	"github.com/hexwars/replica/internal/world"
	"github.com/hexwars/replica/pkg/core"
)

// MinDamage is the least damage a possible attack deals.
const MinDamage = 1

// Resolver evaluates combat formulas and action predicates against one state and ruleset.
type Resolver struct {
	state *world.State
	rules *rules.Ruleset
}

// New creates a resolver reading s and r.
func New(s *world.State, r *rules.Ruleset) *Resolver {
	return &Resolver{state: s, rules: r}
}

// WeaponPower returns the power of a weapon against armor at distance.
func (c *Resolver) WeaponPower(weaponID, armor, distance int) (int, bool) {
	w, ok := c.rules.Weapon(weaponID)
	if !ok {
		return 0, false
	}
	return w.Power(armor, distance)
}

// usableWeapons returns the weapons of ut that can fire in the given deployment state.
func (c *Resolver) usableWeapons(ut rules.UnitType, deployed bool) []rules.Weapon {
	var out []rules.Weapon
	for _, w := range c.rules.Weapons(ut) {
		if w.RequireDeployed && !deployed {
			continue
		}
		out = append(out, w)
	}
	return out
}

// AttackDamage returns the damage attacker deals to target at distance while target stands on terrain.
// ok is false when no usable weapon reaches the target's armor at that distance.
func (c *Resolver) AttackDamage(attacker, target core.Unit, distance, terrain int) (int, bool) {
	at, ok := c.rules.UnitType(attacker.Type)
	if !ok {
		return 0, false
	}
	tt, ok := c.rules.UnitType(target.Type)
	if !ok {
		return 0, false
	}

	best, found := 0, false
	for _, w := range c.usableWeapons(at, attacker.Deployed) {
		if p, ok := w.Power(tt.Armor, distance); ok && (!found || p > best) {
			best, found = p, true
		}
	}
	if !found {
		return 0, false
	}

	defense, ok := tt.DefenseMap[terrain]
	if !ok {
		if tr, ok := c.rules.Terrain(terrain); ok {
			defense = tr.Defense
		}
	}

	ah := float64(attacker.Health)
	th := float64(target.Health)
	dmg := int(math.Floor(ah * float64(best) * (100 - float64(defense)*th/100) / 100 / 100))
	return max(dmg, MinDamage), true
}

// AttackOptions returns target unit id -> damage for every enemy unit attackable from pos.
// Attacking from anywhere but the unit's own tile counts as undeployed.
func (c *Resolver) AttackOptions(unit core.Unit, pos core.Position) map[string]int {
	ut, ok := c.rules.UnitType(unit.Type)
	if !ok {
		return nil
	}

	deployed := unit.Deployed
	if own, err := c.state.Tile(unit.TileID); err != nil || own.Position() != pos {
		deployed = false
	}
	attacker := unit
	attacker.Deployed = deployed

	lo, hi, found := 0, 0, false
	for _, w := range c.usableWeapons(ut, deployed) {
		wlo, whi, ok := w.Range()
		if !ok {
			continue
		}
		if !found {
			lo, hi, found = wlo, whi, true
			continue
		}
		lo, hi = min(lo, wlo), max(hi, whi)
	}
	if !found {
		return nil
	}

	var out map[string]int
	for _, t := range c.state.Tiles() {
		if t.UnitID == "" || t.UnitID == unit.ID {
			continue
		}
		target, err := c.state.Unit(t.UnitID)
		if err != nil || c.state.AreAllies(unit.Owner, target.Owner) {
			continue
		}
		d := geo.Distance(pos, t.Position())
		if d < lo || d > hi {
			continue
		}
		dmg, ok := c.AttackDamage(attacker, *target, d, t.Type)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]int)
		}
		out[target.ID] = dmg
	}
	return out
}
