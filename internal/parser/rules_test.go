package parser

import (
	"log/slog"
	"testing"

	"github.com/hexwars/replica/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesPayload = `{
  "weapons": {
    "1": {"id": 1, "name": "Rifle", "requireDeployed": false, "rangeMap": {"1": 100}, "powerMap": {"1": 60, "2": 20}},
    "2": {"id": 2, "name": "Howitzer", "requireDeployed": true, "rangeMap": {"2.00": 100, "3": 90}, "powerMap": {"1": 80}}
  },
  "armors": {"1": {"id": 1, "name": "Light"}, "2": {"id": 2, "name": "Heavy"}},
  "unitClasses": {"1": {"id": 1, "name": "Infantry"}},
  "terrainFlags": {"1": {"id": 1, "name": "Capturable"}, "2": {"id": 2, "name": "Funds"}},
  "terrains": {
    "1": {"id": 1, "name": "Road", "defense": 0},
    "3": {"id": 3, "name": "Base", "defense": 20, "buildTypes": [1], "repairTypes": [1], "flags": [1, 2]}
  },
  "movementTypes": {"1": {"id": 1, "name": "Foot", "effectMap": {"1": 1, "3": 1, "4": null}}},
  "unitFlags": {"1": {"id": 1, "name": "Capture"}},
  "units": {
    "1": {"id": 1, "name": "Infantry", "unitClass": 1, "price": 100, "primaryWeapon": 1, "secondaryWeapon": null,
          "armor": 1, "defenseMap": {"3": 10}, "movementType": 1, "movement": 3, "carryClasses": [], "carryNum": 0, "flags": [1]}
  }
}`

func TestParseRules(t *testing.T) {
	p := NewParser(slog.Default())

	r, err := p.ParseRules([]byte(rulesPayload))
	require.NoError(t, err)

	w, ok := r.Weapon(2)
	require.True(t, ok)
	assert.True(t, w.RequireDeployed)
	assert.Equal(t, map[int]int{2: 100, 3: 90}, w.RangeMap)

	base, ok := r.Terrain(3)
	require.True(t, ok)
	assert.Equal(t, 20, base.Defense)
	assert.True(t, base.BuildTypes.Has(1))
	assert.True(t, base.Caps.Has(rules.TerrainCapturable|rules.TerrainFunds))

	foot, ok := r.MovementType(1)
	require.True(t, ok)
	_, ok = foot.Cost(4)
	assert.False(t, ok, "null cost is impassable")
	cost, ok := foot.Cost(3)
	assert.True(t, ok)
	assert.Equal(t, 1, cost)

	inf, ok := r.UnitType(1)
	require.True(t, ok)
	assert.Equal(t, 1, inf.Class)
	assert.Equal(t, 1, inf.PrimaryWeapon)
	assert.Equal(t, rules.NoWeapon, inf.SecondaryWeapon)
	assert.Equal(t, map[int]int{3: 10}, inf.DefenseMap)
	assert.True(t, inf.Caps.Has(rules.UnitCapture))
}

func TestParseRulesErrors(t *testing.T) {
	p := NewParser(slog.Default())

	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"weapons": [`},
		{"bad map key", `{"weapons": {"1": {"id": 1, "rangeMap": {"one": 100}}}}`},
		{"fractional key", `{"weapons": {"1": {"id": 1, "rangeMap": {"1.5": 100}}}}`},
		{"undeclared flag id", `{"units": {"1": {"id": 1, "flags": [7]}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseRules([]byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestParseIntKey(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"32", 32, false},
		{"32.00", 32, false},
		{"-1", -1, false},
		{"1.5", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseIntKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
