package logging

import (
	"fmt"
	"log/slog"

	"github.com/hexwars/replica/pkg/core"
)

// Board is the read side an EventLogger describes events against.
type Board interface {
	Unit(id string) (core.Unit, error)
	Tile(id string) (core.Tile, error)
	Player(number int) (core.Player, error)
}

// EventLogger writes one line per notification. Notifications arrive before the state
// changes, so lookups see the board as it was when the event happened.
type EventLogger struct {
	board  Board
	logger *slog.Logger
}

func NewEventLogger(board Board, logger *slog.Logger) *EventLogger {
	return &EventLogger{board: board, logger: logger}
}

// Handle is meant to be passed to the engine's event stream Subscribe.
func (l *EventLogger) Handle(ev core.Event) {
	l.logger.Info(l.Describe(ev), "kind", string(ev.Kind()))
}

// Describe renders ev in words.
func (l *EventLogger) Describe(ev core.Event) string {
	switch e := ev.(type) {
	case core.GameDataEvent:
		return fmt.Sprintf("game %s loaded", e.GameID)
	case core.MoveEvent:
		return fmt.Sprintf("unit %s moves from %s to %s", e.UnitID, l.whereUnit(e.UnitID), l.whereTile(e.TileID))
	case core.WaitEvent:
		return fmt.Sprintf("unit %s waits", e.UnitID)
	case core.AttackEvent:
		return fmt.Sprintf("unit %s attacks %s for %d (%s)", e.AttackerID, e.TargetID, e.Damage, l.healthAfter(e.TargetID, e.Damage))
	case core.CounterattackEvent:
		return fmt.Sprintf("unit %s counterattacks %s for %d (%s)", e.AttackerID, e.TargetID, e.Damage, l.healthAfter(e.TargetID, e.Damage))
	case core.CaptureEvent:
		return fmt.Sprintf("unit %s captures %s, %d points left", e.UnitID, l.whereTile(e.TileID), e.Left)
	case core.CapturedEvent:
		from := "?"
		if t, err := l.board.Tile(e.TileID); err == nil {
			from = l.playerName(t.Owner)
		}
		return fmt.Sprintf("unit %s took %s from %s", e.UnitID, l.whereTile(e.TileID), from)
	case core.DeployEvent:
		return fmt.Sprintf("unit %s deploys", e.UnitID)
	case core.UndeployEvent:
		return fmt.Sprintf("unit %s undeploys", e.UnitID)
	case core.LoadEvent:
		return fmt.Sprintf("unit %s loads into %s at %s", e.UnitID, e.CarrierID, l.whereUnit(e.CarrierID))
	case core.UnloadEvent:
		return fmt.Sprintf("unit %s unloads from %s to %s", e.UnitID, e.CarrierID, l.whereTile(e.TileID))
	case core.DestroyEvent:
		if u, err := l.board.Unit(e.UnitID); err == nil && len(u.CarriedUnits) > 0 {
			return fmt.Sprintf("unit %s is destroyed with %d carried", e.UnitID, len(u.CarriedUnits))
		}
		return fmt.Sprintf("unit %s is destroyed", e.UnitID)
	case core.RepairEvent:
		if u, err := l.board.Unit(e.UnitID); err == nil {
			return fmt.Sprintf("unit %s repaired from %d to %d", e.UnitID, u.Health, e.NewHealth)
		}
		return fmt.Sprintf("unit %s repaired to %d", e.UnitID, e.NewHealth)
	case core.BuildEvent:
		return fmt.Sprintf("%s builds %s (type %d) at %s", l.playerName(e.Unit.Owner), e.Unit.ID, e.Unit.Type, l.whereTile(e.TileID))
	case core.RegenerateCapturePointsEvent:
		if t, err := l.board.Tile(e.TileID); err == nil {
			return fmt.Sprintf("tile %s capture points %d -> %d", e.TileID, t.CapturePoints, e.NewCapturePoints)
		}
		return fmt.Sprintf("tile %s capture points -> %d", e.TileID, e.NewCapturePoints)
	case core.ProduceFundsEvent:
		if t, err := l.board.Tile(e.TileID); err == nil {
			return fmt.Sprintf("tile %s produces funds for %s", e.TileID, l.playerName(t.Owner))
		}
		return fmt.Sprintf("tile %s produces funds", e.TileID)
	case core.BeginTurnEvent:
		return fmt.Sprintf("turn begins for %s", l.playerName(e.Player))
	case core.EndTurnEvent:
		return fmt.Sprintf("%s ends turn", l.playerName(e.Player))
	case core.TurnTimeoutEvent:
		return fmt.Sprintf("turn of %s timed out", l.playerName(e.Player))
	case core.FinishedEvent:
		return fmt.Sprintf("game finished, winner %s", l.playerName(e.Winner))
	case core.SurrenderEvent:
		return fmt.Sprintf("%s surrenders", l.playerName(e.Player))
	default:
		return fmt.Sprintf("event %s", ev.Kind())
	}
}

func (l *EventLogger) whereTile(id string) string {
	t, err := l.board.Tile(id)
	if err != nil {
		return id
	}
	return fmt.Sprintf("(%d,%d)", t.X, t.Y)
}

func (l *EventLogger) whereUnit(id string) string {
	u, err := l.board.Unit(id)
	if err != nil {
		return "?"
	}
	if u.CarriedBy != "" {
		return "carrier " + u.CarriedBy
	}
	return l.whereTile(u.TileID)
}

func (l *EventLogger) healthAfter(id string, damage int) string {
	u, err := l.board.Unit(id)
	if err != nil {
		return "target unknown"
	}
	return fmt.Sprintf("health %d -> %d", u.Health, max(0, u.Health-damage))
}

func (l *EventLogger) playerName(number int) string {
	if number == core.NeutralPlayer {
		return "neutral"
	}
	p, err := l.board.Player(number)
	if err != nil || p.Name == "" {
		return fmt.Sprintf("player %d", number)
	}
	return fmt.Sprintf("%s (%d)", p.Name, number)
}
