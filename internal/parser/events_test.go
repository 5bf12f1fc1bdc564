package parser

import (
	"log/slog"
	"testing"

	"github.com/hexwars/replica/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	p := NewParser(slog.Default())

	tests := []struct {
		name    string
		payload string
		want    core.Event
	}{
		{"move", `{"action": "move", "unit": "u1", "tile": "t2", "path": [{"x": 0, "y": 0}, {"x": 1, "y": 0}]}`,
			core.MoveEvent{UnitID: "u1", TileID: "t2", Path: []core.Position{{X: 0, Y: 0}, {X: 1, Y: 0}}}},
		{"wait", `{"action": "wait", "unit": "u1"}`, core.WaitEvent{UnitID: "u1"}},
		{"attack", `{"action": "attack", "attacker": "a", "target": "b", "damage": 40}`,
			core.AttackEvent{AttackerID: "a", TargetID: "b", Damage: 40}},
		{"counterattack", `{"action": "counterattack", "attacker": "b", "target": "a", "damage": 10}`,
			core.CounterattackEvent{AttackerID: "b", TargetID: "a", Damage: 10}},
		{"capture", `{"action": "capture", "unit": "u1", "tile": "t1", "left": 10}`,
			core.CaptureEvent{UnitID: "u1", TileID: "t1", Left: 10}},
		{"captured", `{"action": "captured", "unit": "u1", "tile": "t1"}`, core.CapturedEvent{UnitID: "u1", TileID: "t1"}},
		{"deploy", `{"action": "deploy", "unit": "u1"}`, core.DeployEvent{UnitID: "u1"}},
		{"undeploy", `{"action": "undeploy", "unit": "u1"}`, core.UndeployEvent{UnitID: "u1"}},
		{"load", `{"action": "load", "unit": "u1", "carrier": "c"}`, core.LoadEvent{UnitID: "u1", CarrierID: "c"}},
		{"unload", `{"action": "unload", "unit": "u1", "carrier": "c", "tile": "t3"}`,
			core.UnloadEvent{UnitID: "u1", CarrierID: "c", TileID: "t3"}},
		{"destroyed", `{"action": "destroyed", "unit": "u1"}`, core.DestroyEvent{UnitID: "u1"}},
		{"repair", `{"action": "repair", "unit": "u1", "newHealth": 80}`, core.RepairEvent{UnitID: "u1", NewHealth: 80}},
		{"regenerate", `{"action": "regenerateCapturePoints", "tile": "t1", "newCapturePoints": 20}`,
			core.RegenerateCapturePointsEvent{TileID: "t1", NewCapturePoints: 20}},
		{"funds", `{"action": "produceFunds", "tile": "t1"}`, core.ProduceFundsEvent{TileID: "t1"}},
		{"beginTurn", `{"action": "beginTurn", "player": 2}`, core.BeginTurnEvent{Player: 2}},
		{"endTurn", `{"action": "endTurn", "player": 2}`, core.EndTurnEvent{Player: 2}},
		{"turnTimeout", `{"action": "turnTimeout", "player": 1}`, core.TurnTimeoutEvent{Player: 1}},
		{"finished", `{"action": "finished", "winner": 1}`, core.FinishedEvent{Winner: 1}},
		{"surrender", `{"action": "surrender", "player": 2}`, core.SurrenderEvent{Player: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseEvent([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBuildEvent(t *testing.T) {
	p := NewParser(slog.Default())

	ev, err := p.ParseEvent([]byte(`{"action": "build", "tile": "t9",
		"unit": {"unitId": "n1", "tileId": null, "type": 1, "owner": 2, "carriedBy": "x", "health": 100,
		         "deployed": false, "moved": true, "capturing": false, "carriedUnits": []}}`))
	require.NoError(t, err)

	build, ok := ev.(core.BuildEvent)
	require.True(t, ok)
	assert.Equal(t, "t9", build.TileID)
	assert.Equal(t, "n1", build.Unit.ID)
	assert.Equal(t, "t9", build.Unit.TileID)
	assert.Empty(t, build.Unit.CarriedBy)
	assert.Equal(t, 2, build.Unit.Owner)
}

func TestParseEventErrors(t *testing.T) {
	p := NewParser(slog.Default())

	_, err := p.ParseEvent([]byte(`{"action": "teleport", "unit": "u1"}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = p.ParseEvent([]byte(`{"action": "gamedata"}`))
	assert.ErrorIs(t, err, ErrUnknownEvent, "gamedata is a notification, not a wire event")

	_, err = p.ParseEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = p.ParseEvent([]byte(`{"action": "attack", "damage": "lots"}`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownEvent)
}

func TestParseEventBatch(t *testing.T) {
	p := NewParser(slog.Default())

	evs, err := p.ParseEventBatch([]byte(`[
		{"action": "wait", "unit": "u1"},
		{"action": "teleport"},
		{"action": "endTurn", "player": 1}
	]`))
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, core.KindWait, evs[0].Kind())
	assert.Equal(t, core.KindEndTurn, evs[1].Kind())

	_, err = p.ParseEventBatch([]byte(`[{"action": "attack", "damage": "x"}]`))
	assert.Error(t, err)

	_, err = p.ParseEventBatch([]byte(`{}`))
	assert.Error(t, err)
}
