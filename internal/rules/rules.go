// Package rules holds the static game rule tables. A Ruleset never changes after New.
package rules

import (
	"errors"
	"fmt"
	"slices"
)

// NoWeapon marks an empty weapon slot on a unit type.
const NoWeapon = -1

// ErrNotFound is returned by callers that need a rule record the ruleset does not have.
var ErrNotFound = errors.New("rule not found")

// IntSet is a set of small integer ids.
type IntSet map[int]struct{}

// NewIntSet builds a set from ids.
func NewIntSet(ids ...int) IntSet {
	s := make(IntSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set is empty.
func (s IntSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

type Weapon struct {
	ID              int
	Name            string
	RequireDeployed bool
	RangeMap        map[int]int // distance -> efficiency percent
	PowerMap        map[int]int // armor id -> base power
}

// Power returns the weapon's power against armor at distance.
func (w Weapon) Power(armor, distance int) (int, bool) {
	power, ok := w.PowerMap[armor]
	if !ok {
		return 0, false
	}
	eff, ok := w.RangeMap[distance]
	if !ok {
		return 0, false
	}
	return power * eff / 100, true
}

// Range returns the smallest and largest distance the weapon has an efficiency for.
func (w Weapon) Range() (lo, hi int, ok bool) {
	for d := range w.RangeMap {
		if !ok {
			lo, hi, ok = d, d, true
			continue
		}
		lo = min(lo, d)
		hi = max(hi, d)
	}
	return lo, hi, ok
}

type Armor struct {
	ID   int
	Name string
}

type UnitClass struct {
	ID   int
	Name string
}

type TerrainFlag struct {
	ID   int
	Name string
}

type UnitFlag struct {
	ID   int
	Name string
}

type TerrainType struct {
	ID          int
	Name        string
	Defense     int
	BuildTypes  IntSet // unit classes that can be built here
	RepairTypes IntSet // unit classes that can be repaired here
	Flags       IntSet
	Caps        Capability
}

type MovementType struct {
	ID        int
	Name      string
	EffectMap map[int]int // terrain id -> cost, negative is impassable
}

// Cost returns the movement cost of entering terrain. Absent or negative costs are impassable.
func (m MovementType) Cost(terrain int) (int, bool) {
	c, ok := m.EffectMap[terrain]
	if !ok || c < 0 {
		return 0, false
	}
	return c, true
}

type UnitType struct {
	ID              int
	Name            string
	Class           int
	Price           int
	PrimaryWeapon   int
	SecondaryWeapon int
	Armor           int
	DefenseMap      map[int]int // terrain id -> defense override
	MovementType    int
	Movement        int
	CarryClasses    IntSet
	CarryNum        int
	Flags           IntSet
	Caps            Capability
}

// CanCarryClass reports whether units of class fit into this type.
func (u UnitType) CanCarryClass(class int) bool {
	return u.CarryNum > 0 && u.CarryClasses.Has(class)
}

// Tables is the raw content of a rules payload.
type Tables struct {
	Weapons       []Weapon
	Armors        []Armor
	UnitClasses   []UnitClass
	TerrainFlags  []TerrainFlag
	Terrains      []TerrainType
	MovementTypes []MovementType
	UnitFlags     []UnitFlag
	UnitTypes     []UnitType
}

// Ruleset is the immutable, id-keyed form of Tables with capabilities resolved.
type Ruleset struct {
	weapons       map[int]Weapon
	armors        map[int]Armor
	unitClasses   map[int]UnitClass
	terrainFlags  map[int]TerrainFlag
	terrains      map[int]TerrainType
	movementTypes map[int]MovementType
	unitFlags     map[int]UnitFlag
	unitTypes     map[int]UnitType
}

// New indexes t and resolves flag names to capabilities.
func New(t Tables) (*Ruleset, error) {
	r := &Ruleset{
		weapons:       index(t.Weapons, func(v Weapon) int { return v.ID }),
		armors:        index(t.Armors, func(v Armor) int { return v.ID }),
		unitClasses:   index(t.UnitClasses, func(v UnitClass) int { return v.ID }),
		terrainFlags:  index(t.TerrainFlags, func(v TerrainFlag) int { return v.ID }),
		terrains:      make(map[int]TerrainType, len(t.Terrains)),
		movementTypes: index(t.MovementTypes, func(v MovementType) int { return v.ID }),
		unitFlags:     index(t.UnitFlags, func(v UnitFlag) int { return v.ID }),
		unitTypes:     make(map[int]UnitType, len(t.UnitTypes)),
	}

	for _, tt := range t.Terrains {
		caps, err := resolve(tt.Flags, func(id int) (string, bool) {
			f, ok := r.terrainFlags[id]
			return f.Name, ok
		}, terrainCapabilities)
		if err != nil {
			return nil, fmt.Errorf("terrain %d: %w", tt.ID, err)
		}
		tt.Caps = caps
		r.terrains[tt.ID] = tt
	}

	for _, ut := range t.UnitTypes {
		caps, err := resolve(ut.Flags, func(id int) (string, bool) {
			f, ok := r.unitFlags[id]
			return f.Name, ok
		}, unitCapabilities)
		if err != nil {
			return nil, fmt.Errorf("unit type %d: %w", ut.ID, err)
		}
		ut.Caps = caps
		r.unitTypes[ut.ID] = ut
	}

	return r, nil
}

func index[T any](items []T, key func(T) int) map[int]T {
	m := make(map[int]T, len(items))
	for _, it := range items {
		m[key(it)] = it
	}
	return m
}

func (r *Ruleset) Weapon(id int) (Weapon, bool) {
	w, ok := r.weapons[id]
	return w, ok
}

func (r *Ruleset) Armor(id int) (Armor, bool) {
	a, ok := r.armors[id]
	return a, ok
}

func (r *Ruleset) UnitClass(id int) (UnitClass, bool) {
	c, ok := r.unitClasses[id]
	return c, ok
}

func (r *Ruleset) TerrainFlag(id int) (TerrainFlag, bool) {
	f, ok := r.terrainFlags[id]
	return f, ok
}

func (r *Ruleset) Terrain(id int) (TerrainType, bool) {
	t, ok := r.terrains[id]
	return t, ok
}

func (r *Ruleset) MovementType(id int) (MovementType, bool) {
	m, ok := r.movementTypes[id]
	return m, ok
}

func (r *Ruleset) UnitFlag(id int) (UnitFlag, bool) {
	f, ok := r.unitFlags[id]
	return f, ok
}

func (r *Ruleset) UnitType(id int) (UnitType, bool) {
	u, ok := r.unitTypes[id]
	return u, ok
}

// UnitTypes returns every unit type ordered by id.
func (r *Ruleset) UnitTypes() []UnitType {
	out := make([]UnitType, 0, len(r.unitTypes))
	for _, u := range r.unitTypes {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b UnitType) int { return a.ID - b.ID })
	return out
}

// Weapons returns the weapons mounted on ut. Empty slots and unknown ids are skipped.
func (r *Ruleset) Weapons(ut UnitType) []Weapon {
	var out []Weapon
	for _, id := range []int{ut.PrimaryWeapon, ut.SecondaryWeapon} {
		if id == NoWeapon {
			continue
		}
		if w, ok := r.weapons[id]; ok {
			out = append(out, w)
		}
	}
	return out
}

// Counts returns the number of records per section, keyed by payload section name.
func (r *Ruleset) Counts() map[string]int {
	return map[string]int{
		"weapons":       len(r.weapons),
		"armors":        len(r.armors),
		"unitClasses":   len(r.unitClasses),
		"terrainFlags":  len(r.terrainFlags),
		"terrains":      len(r.terrains),
		"movementTypes": len(r.movementTypes),
		"unitFlags":     len(r.unitFlags),
		"units":         len(r.unitTypes),
	}
}
