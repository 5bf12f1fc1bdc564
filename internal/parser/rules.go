package parser

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/hexwars/replica/internal/rules"
)

// impassableCost replaces null movement costs.
const impassableCost = -1

type namedJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type weaponJSON struct {
	ID              int            `json:"id"`
	Name            string         `json:"name"`
	RequireDeployed bool           `json:"requireDeployed"`
	RangeMap        map[string]int `json:"rangeMap"`
	PowerMap        map[string]int `json:"powerMap"`
}

type terrainJSON struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Defense     int    `json:"defense"`
	BuildTypes  []int  `json:"buildTypes"`
	RepairTypes []int  `json:"repairTypes"`
	Flags       []int  `json:"flags"`
}

type movementTypeJSON struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	EffectMap map[string]*int `json:"effectMap"`
}

type unitTypeJSON struct {
	ID              int            `json:"id"`
	Name            string         `json:"name"`
	UnitClass       int            `json:"unitClass"`
	Price           int            `json:"price"`
	PrimaryWeapon   *int           `json:"primaryWeapon"`
	SecondaryWeapon *int           `json:"secondaryWeapon"`
	Armor           int            `json:"armor"`
	DefenseMap      map[string]int `json:"defenseMap"`
	MovementType    int            `json:"movementType"`
	Movement        int            `json:"movement"`
	CarryClasses    []int          `json:"carryClasses"`
	CarryNum        int            `json:"carryNum"`
	Flags           []int          `json:"flags"`
}

type rulesJSON struct {
	Weapons       map[string]weaponJSON       `json:"weapons"`
	Armors        map[string]namedJSON        `json:"armors"`
	UnitClasses   map[string]namedJSON        `json:"unitClasses"`
	TerrainFlags  map[string]namedJSON        `json:"terrainFlags"`
	Terrains      map[string]terrainJSON      `json:"terrains"`
	MovementTypes map[string]movementTypeJSON `json:"movementTypes"`
	UnitFlags     map[string]namedJSON        `json:"unitFlags"`
	Units         map[string]unitTypeJSON     `json:"units"`
}

// sortedValues returns the section records ordered by their own id.
func sortedValues[T any](m map[string]T, id func(T) int) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b T) int { return id(a) - id(b) })
	return out
}

func weaponOrNone(id *int) int {
	if id == nil {
		return rules.NoWeapon
	}
	return *id
}

// ParseRules decodes a rules payload into a Ruleset.
// Records are keyed by their own id field; section keys only group them.
func (p *Parser) ParseRules(data []byte) (*rules.Ruleset, error) {
	var raw rulesJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshalling rules: %w", err)
	}

	var t rules.Tables

	for _, w := range sortedValues(raw.Weapons, func(w weaponJSON) int { return w.ID }) {
		rangeMap, err := intMap(w.RangeMap)
		if err != nil {
			return nil, fmt.Errorf("weapon %d rangeMap: %w", w.ID, err)
		}
		powerMap, err := intMap(w.PowerMap)
		if err != nil {
			return nil, fmt.Errorf("weapon %d powerMap: %w", w.ID, err)
		}
		t.Weapons = append(t.Weapons, rules.Weapon{
			ID: w.ID, Name: w.Name, RequireDeployed: w.RequireDeployed,
			RangeMap: rangeMap, PowerMap: powerMap,
		})
	}

	byID := func(n namedJSON) int { return n.ID }
	for _, a := range sortedValues(raw.Armors, byID) {
		t.Armors = append(t.Armors, rules.Armor{ID: a.ID, Name: a.Name})
	}
	for _, c := range sortedValues(raw.UnitClasses, byID) {
		t.UnitClasses = append(t.UnitClasses, rules.UnitClass{ID: c.ID, Name: c.Name})
	}
	for _, f := range sortedValues(raw.TerrainFlags, byID) {
		t.TerrainFlags = append(t.TerrainFlags, rules.TerrainFlag{ID: f.ID, Name: f.Name})
	}
	for _, f := range sortedValues(raw.UnitFlags, byID) {
		t.UnitFlags = append(t.UnitFlags, rules.UnitFlag{ID: f.ID, Name: f.Name})
	}

	for _, tr := range sortedValues(raw.Terrains, func(v terrainJSON) int { return v.ID }) {
		t.Terrains = append(t.Terrains, rules.TerrainType{
			ID: tr.ID, Name: tr.Name, Defense: tr.Defense,
			BuildTypes:  rules.NewIntSet(tr.BuildTypes...),
			RepairTypes: rules.NewIntSet(tr.RepairTypes...),
			Flags:       rules.NewIntSet(tr.Flags...),
		})
	}

	for _, mt := range sortedValues(raw.MovementTypes, func(v movementTypeJSON) int { return v.ID }) {
		effect := make(map[int]int, len(mt.EffectMap))
		for k, v := range mt.EffectMap {
			terrain, err := parseIntKey(k)
			if err != nil {
				return nil, fmt.Errorf("movement type %d effectMap: %w", mt.ID, err)
			}
			if v == nil {
				effect[terrain] = impassableCost
			} else {
				effect[terrain] = *v
			}
		}
		t.MovementTypes = append(t.MovementTypes, rules.MovementType{ID: mt.ID, Name: mt.Name, EffectMap: effect})
	}

	for _, u := range sortedValues(raw.Units, func(v unitTypeJSON) int { return v.ID }) {
		defense, err := intMap(u.DefenseMap)
		if err != nil {
			return nil, fmt.Errorf("unit type %d defenseMap: %w", u.ID, err)
		}
		t.UnitTypes = append(t.UnitTypes, rules.UnitType{
			ID:              u.ID,
			Name:            u.Name,
			Class:           u.UnitClass,
			Price:           u.Price,
			PrimaryWeapon:   weaponOrNone(u.PrimaryWeapon),
			SecondaryWeapon: weaponOrNone(u.SecondaryWeapon),
			Armor:           u.Armor,
			DefenseMap:      defense,
			MovementType:    u.MovementType,
			Movement:        u.Movement,
			CarryClasses:    rules.NewIntSet(u.CarryClasses...),
			CarryNum:        u.CarryNum,
			Flags:           rules.NewIntSet(u.Flags...),
		})
	}

	r, err := rules.New(t)
	if err != nil {
		return nil, fmt.Errorf("building ruleset: %w", err)
	}

	p.logger.Debug("Parsed rules",
		"weapons", len(t.Weapons),
		"terrains", len(t.Terrains),
		"units", len(t.UnitTypes))

	return r, nil
}
