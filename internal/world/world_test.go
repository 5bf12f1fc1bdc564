package world

import (
	"testing"

	"github.com/hexwars/replica/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Info: core.GameInfo{GameID: "g1", Name: "test", State: core.GameInProgress, InTurnNumber: 1},
		Tiles: []core.Tile{
			{ID: "t1", X: 0, Y: 0, UnitID: "u1"},
			{ID: "t2", X: 1, Y: 0, UnitID: "c1"},
			{ID: "t3", X: 2, Y: 0},
		},
		Units: []core.Unit{
			{ID: "u1", TileID: "t1", Owner: 1, Health: 100},
			{ID: "c1", TileID: "t2", Owner: 2, Health: 100, CarriedUnits: []string{"p1"}},
			{ID: "p1", CarriedBy: "c1", Owner: 2, Health: 100},
		},
		Players: []core.Player{
			{Number: 1, Team: 1},
			{Number: 2, Team: 2},
			{Number: 3, Team: 1},
		},
	}
}

func loaded(t *testing.T) *State {
	t.Helper()
	s := New()
	require.NoError(t, s.Load(testSnapshot()))
	return s
}

func TestLoad(t *testing.T) {
	s := loaded(t)

	assert.Equal(t, "g1", s.Info().GameID)
	assert.Equal(t, 1, s.InTurn())
	assert.Len(t, s.Tiles(), 3)
	assert.Len(t, s.Units(), 3)
	assert.Len(t, s.Players(), 3)
	assert.NoError(t, s.Validate())

	tile, ok := s.TileAt(core.Position{X: 1, Y: 0})
	require.True(t, ok)
	assert.Equal(t, "t2", tile.ID)

	_, ok = s.TileAt(core.Position{X: 5, Y: 5})
	assert.False(t, ok)
}

func TestLoad_DuplicateCoordinates(t *testing.T) {
	snap := testSnapshot()
	snap.Tiles = append(snap.Tiles, core.Tile{ID: "t4", X: 0, Y: 0})

	err := New().Load(snap)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestLoad_FailureKeepsPreviousState(t *testing.T) {
	s := loaded(t)
	snap := testSnapshot()
	snap.Units = append(snap.Units, core.Unit{ID: "u1"})

	require.ErrorIs(t, s.Load(snap), ErrDuplicate)
	assert.Len(t, s.Units(), 3)
}

func TestLookups_NotFound(t *testing.T) {
	s := loaded(t)

	_, err := s.Tile("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Unit("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Player(9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollections_Ordered(t *testing.T) {
	s := loaded(t)

	var ids []string
	for _, u := range s.Units() {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"c1", "p1", "u1"}, ids)

	var nums []int
	for _, p := range s.Players() {
		nums = append(nums, p.Number)
	}
	assert.Equal(t, []int{1, 2, 3}, nums)
}

func TestAreAllies(t *testing.T) {
	s := loaded(t)

	tests := []struct {
		a, b int
		want bool
	}{
		{1, 1, true},
		{1, 3, true},
		{1, 2, false},
		{0, 0, true},
		{0, 1, false},
		{2, 0, false},
		{1, 9, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, s.AreAllies(tc.a, tc.b), "%d vs %d", tc.a, tc.b)
		assert.Equal(t, tc.want, s.AreAllies(tc.b, tc.a), "%d vs %d", tc.b, tc.a)
	}
}

func TestOccupyVacate(t *testing.T) {
	s := loaded(t)

	s.Vacate("t1")
	require.NoError(t, s.Occupy("t3", "u1"))

	tile, _ := s.Tile("t3")
	unit, _ := s.Unit("u1")
	assert.Equal(t, "u1", tile.UnitID)
	assert.Equal(t, "t3", unit.TileID)
	assert.NoError(t, s.Validate())

	assert.ErrorIs(t, s.Occupy("t9", "u1"), ErrNotFound)
	assert.ErrorIs(t, s.Occupy("t1", "u9"), ErrNotFound)
}

func TestAddRemoveUnit(t *testing.T) {
	s := loaded(t)

	require.NoError(t, s.AddUnit(core.Unit{ID: "n1"}))
	assert.True(t, s.HasUnit("n1"))
	assert.ErrorIs(t, s.AddUnit(core.Unit{ID: "n1"}), ErrDuplicate)

	s.RemoveUnit("n1")
	assert.False(t, s.HasUnit("n1"))
}

func TestAddUnit_CopiesCarriedList(t *testing.T) {
	s := New()
	carried := []string{"a"}
	require.NoError(t, s.AddUnit(core.Unit{ID: "c", CarriedUnits: carried}))
	carried[0] = "b"

	u, _ := s.Unit("c")
	assert.Equal(t, []string{"a"}, u.CarriedUnits)
}

func TestValidate_Violations(t *testing.T) {
	s := loaded(t)

	u1, _ := s.Unit("u1")
	u1.TileID = "t3"
	c1, _ := s.Unit("c1")
	c1.CarriedUnits = append(c1.CarriedUnits, "p1")

	err := s.Validate()
	require.ErrorIs(t, err, ErrInconsistent)
	assert.Contains(t, err.Error(), `tile "t1" holds unit "u1" which is on "t3"`)
	assert.Contains(t, err.Error(), `unit "p1" appears 2 times in carrier "c1"`)
}

func TestSetters(t *testing.T) {
	s := loaded(t)
	s.SetInTurn(2)
	s.SetGameState(core.GameFinished)
	assert.Equal(t, 2, s.InTurn())
	assert.Equal(t, core.GameFinished, s.Info().State)
}
