// Package rulestest provides a small, fixed ruleset for tests.
package rulestest

import "github.com/hexwars/replica/internal/rules"

// Terrain ids.
const (
	Road = iota + 1
	Forest
	Base
	Sea
	Mountain
)

// Unit type ids.
const (
	Infantry = iota + 1
	Tank
	APC
	Artillery
)

// Unit class ids.
const (
	ClassInfantry = iota + 1
	ClassVehicle
	ClassShip
)

// Armor ids.
const (
	LightArmor = iota + 1
	HeavyArmor
)

// Movement type ids.
const (
	Foot = iota + 1
	Wheels
)

// Tables returns the raw tables behind Ruleset.
func Tables() rules.Tables {
	return rules.Tables{
		Weapons: []rules.Weapon{
			{ID: 1, Name: "Rifle", RangeMap: map[int]int{1: 100}, PowerMap: map[int]int{LightArmor: 60, HeavyArmor: 20}},
			{ID: 2, Name: "Cannon", RangeMap: map[int]int{1: 100, 2: 80}, PowerMap: map[int]int{LightArmor: 50, HeavyArmor: 70}},
			{ID: 3, Name: "Howitzer", RequireDeployed: true, RangeMap: map[int]int{2: 100, 3: 90, 4: 80}, PowerMap: map[int]int{LightArmor: 80, HeavyArmor: 60}},
		},
		Armors: []rules.Armor{
			{ID: LightArmor, Name: "Light"},
			{ID: HeavyArmor, Name: "Heavy"},
		},
		UnitClasses: []rules.UnitClass{
			{ID: ClassInfantry, Name: "Infantry"},
			{ID: ClassVehicle, Name: "Vehicle"},
			{ID: ClassShip, Name: "Ship"},
		},
		TerrainFlags: []rules.TerrainFlag{
			{ID: 1, Name: "Capturable"},
			{ID: 2, Name: "Funds"},
		},
		Terrains: []rules.TerrainType{
			{ID: Road, Name: "Road"},
			{ID: Forest, Name: "Forest", Defense: 30},
			{ID: Base, Name: "Base", Defense: 20,
				BuildTypes:  rules.NewIntSet(ClassInfantry, ClassVehicle),
				RepairTypes: rules.NewIntSet(ClassInfantry, ClassVehicle),
				Flags:       rules.NewIntSet(1, 2)},
			{ID: Sea, Name: "Sea"},
			{ID: Mountain, Name: "Mountain", Defense: 50},
		},
		MovementTypes: []rules.MovementType{
			{ID: Foot, Name: "Foot", EffectMap: map[int]int{Road: 1, Forest: 2, Base: 1, Sea: -1, Mountain: 3}},
			{ID: Wheels, Name: "Wheels", EffectMap: map[int]int{Road: 1, Forest: 3, Base: 1, Mountain: -1}},
		},
		UnitFlags: []rules.UnitFlag{
			{ID: 1, Name: "Capture"},
		},
		UnitTypes: []rules.UnitType{
			{ID: Infantry, Name: "Infantry", Class: ClassInfantry, Price: 100,
				PrimaryWeapon: 1, SecondaryWeapon: rules.NoWeapon, Armor: LightArmor,
				MovementType: Foot, Movement: 3, Flags: rules.NewIntSet(1)},
			{ID: Tank, Name: "Tank", Class: ClassVehicle, Price: 300,
				PrimaryWeapon: 2, SecondaryWeapon: 1, Armor: HeavyArmor,
				DefenseMap: map[int]int{Forest: 10}, MovementType: Wheels, Movement: 4},
			{ID: APC, Name: "APC", Class: ClassVehicle, Price: 200,
				PrimaryWeapon: rules.NoWeapon, SecondaryWeapon: rules.NoWeapon, Armor: HeavyArmor,
				MovementType: Wheels, Movement: 5, CarryClasses: rules.NewIntSet(ClassInfantry), CarryNum: 2},
			{ID: Artillery, Name: "Artillery", Class: ClassVehicle, Price: 250,
				PrimaryWeapon: 3, SecondaryWeapon: rules.NoWeapon, Armor: LightArmor,
				MovementType: Wheels, Movement: 3},
		},
	}
}

// Ruleset builds the fixed ruleset. It panics if the tables are inconsistent.
func Ruleset() *rules.Ruleset {
	r, err := rules.New(Tables())
	if err != nil {
		panic(err)
	}
	return r
}
