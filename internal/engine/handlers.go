package engine

import (
	"fmt"
	"slices"

	"github.com/hexwars/replica/internal/dispatcher"
	"github.com/hexwars/replica/internal/world"
	"github.com/hexwars/replica/pkg/core"
)

func (e *Engine) registerHandlers() {
	var opts []dispatcher.Option
	if e.logHandlers {
		opts = append(opts, dispatcher.Logged())
	}

	e.dispatch.Register(core.KindMove, handle(e.applyMove), opts...)
	e.dispatch.Register(core.KindWait, handle(e.applyWait), opts...)
	e.dispatch.Register(core.KindAttack, handle(e.applyAttack), opts...)
	e.dispatch.Register(core.KindCounterattack, handle(e.applyCounterattack), opts...)
	e.dispatch.Register(core.KindCapture, handle(e.applyCapture), opts...)
	e.dispatch.Register(core.KindCaptured, handle(e.applyCaptured), opts...)
	e.dispatch.Register(core.KindDeploy, handle(e.applyDeploy), opts...)
	e.dispatch.Register(core.KindUndeploy, handle(e.applyUndeploy), opts...)
	e.dispatch.Register(core.KindLoad, handle(e.applyLoad), opts...)
	e.dispatch.Register(core.KindUnload, handle(e.applyUnload), opts...)
	e.dispatch.Register(core.KindDestroy, handle(e.applyDestroy), opts...)
	e.dispatch.Register(core.KindRepair, handle(e.applyRepair), opts...)
	e.dispatch.Register(core.KindBuild, handle(e.applyBuild), opts...)
	e.dispatch.Register(core.KindRegenerateCapturePoints, handle(e.applyRegenerateCapturePoints), opts...)
	e.dispatch.Register(core.KindProduceFunds, handle(e.applyProduceFunds), opts...)
	e.dispatch.Register(core.KindBeginTurn, handle(e.applyBeginTurn), opts...)
	e.dispatch.Register(core.KindEndTurn, handle(e.applyEndTurn), opts...)
	e.dispatch.Register(core.KindTurnTimeout, handle(e.applyTurnTimeout), opts...)
	e.dispatch.Register(core.KindFinished, handle(e.applyFinished), opts...)
	e.dispatch.Register(core.KindSurrender, handle(e.applySurrender), opts...)
}

// handle adapts a typed handler to the dispatcher.
func handle[T core.Event](fn func(T) error) dispatcher.HandlerFunc {
	return func(ev core.Event) error {
		typed, ok := ev.(T)
		if !ok {
			return fmt.Errorf("%w: %s carries %T", ErrEventType, ev.Kind(), ev)
		}
		return fn(typed)
	}
}

func (e *Engine) applyMove(ev core.MoveEvent) error {
	u, err := e.state.Unit(ev.UnitID)
	if err != nil {
		return err
	}
	dest, err := e.state.Tile(ev.TileID)
	if err != nil {
		return err
	}
	var prev *core.Tile
	if u.TileID != "" {
		if prev, err = e.state.Tile(u.TileID); err != nil {
			return err
		}
	}

	e.publish(ev)

	if prev != nil && prev.UnitID == u.ID {
		prev.UnitID = ""
	}
	if dest.UnitID == "" {
		dest.UnitID = u.ID
	}
	u.TileID = dest.ID
	return nil
}

func (e *Engine) applyWait(ev core.WaitEvent) error {
	u, err := e.state.Unit(ev.UnitID)
	if err != nil {
		return err
	}

	e.publish(ev)

	u.Moved = true
	return nil
}

func (e *Engine) applyAttack(ev core.AttackEvent) error {
	attacker, err := e.state.Unit(ev.AttackerID)
	if err != nil {
		return err
	}
	target, err := e.state.Unit(ev.TargetID)
	if err != nil {
		return err
	}

	e.publish(ev)

	attacker.Moved = true
	target.Health -= ev.Damage
	return nil
}

func (e *Engine) applyCounterattack(ev core.CounterattackEvent) error {
	if _, err := e.state.Unit(ev.AttackerID); err != nil {
		return err
	}
	target, err := e.state.Unit(ev.TargetID)
	if err != nil {
		return err
	}

	e.publish(ev)

	target.Health -= ev.Damage
	return nil
}

func (e *Engine) applyCapture(ev core.CaptureEvent) error {
	u, err := e.state.Unit(ev.UnitID)
	if err != nil {
		return err
	}
	t, err := e.state.Tile(ev.TileID)
	if err != nil {
		return err
	}

	e.publish(ev)

	u.Moved = true
	u.Capturing = true
	t.CapturePoints = ev.Left
	t.BeingCaptured = true
	return nil
}

func (e *Engine) applyCaptured(ev core.CapturedEvent) error {
	u, err := e.state.Unit(ev.UnitID)
	if err != nil {
		return err
	}
	t, err := e.state.Tile(ev.TileID)
	if err != nil {
		return err
	}

	e.publish(ev)

	t.CapturePoints = 1
	t.BeingCaptured = false
	t.Owner = u.Owner
	u.Capturing = false
	return nil
}

func (e *Engine) applyDeploy(ev core.DeployEvent) error {
	u, err := e.state.Unit(ev.UnitID)
	if err != nil {
		return err
	}

	e.publish(ev)

	u.Moved = true
	u.Deployed = true
	return nil
}

func (e *Engine) applyUndeploy(ev core.UndeployEvent) error {
	u, err := e.state.Unit(ev.UnitID)
	if err != nil {
		return err
	}

	e.publish(ev)

	u.Moved = true
	u.Deployed = false
	return nil
}

func (e *Engine) applyLoad(ev core.LoadEvent) error {
	u, err := e.state.Unit(ev.UnitID)
	if err != nil {
		return err
	}
	carrier, err := e.state.Unit(ev.CarrierID)
	if err != nil {
		return err
	}

	e.publish(ev)

	if u.TileID != "" {
		if t, err := e.state.Tile(u.TileID); err == nil && t.UnitID == u.ID {
			t.UnitID = ""
		}
	}
	u.TileID = ""
	u.CarriedBy = carrier.ID
	u.Moved = true
	if !slices.Contains(carrier.CarriedUnits, u.ID) {
		carrier.CarriedUnits = append(carrier.CarriedUnits, u.ID)
	}
	return nil
}

func (e *Engine) applyUnload(ev core.UnloadEvent) error {
	u, err := e.state.Unit(ev.UnitID)
	if err != nil {
		return err
	}
	carrier, err := e.state.Unit(ev.CarrierID)
	if err != nil {
		return err
	}
	t, err := e.state.Tile(ev.TileID)
	if err != nil {
		return err
	}

	e.publish(ev)

	u.TileID = t.ID
	u.CarriedBy = ""
	u.Moved = true
	if t.UnitID == "" {
		t.UnitID = u.ID
	}
	carrier.Moved = true
	carrier.CarriedUnits = removeID(carrier.CarriedUnits, u.ID)
	return nil
}

func (e *Engine) applyDestroy(ev core.DestroyEvent) error {
	u, err := e.state.Unit(ev.UnitID)
	if err != nil {
		return err
	}
	if u.TileID != "" {
		if _, err := e.state.Tile(u.TileID); err != nil {
			return err
		}
	}

	e.publish(ev)

	e.destroy(u.ID)
	return nil
}

// destroy removes a unit and everything it carries. Carried units go first.
func (e *Engine) destroy(id string) {
	u, err := e.state.Unit(id)
	if err != nil {
		return
	}
	for _, carried := range slices.Clone(u.CarriedUnits) {
		e.destroy(carried)
	}
	if u.TileID != "" {
		if t, err := e.state.Tile(u.TileID); err == nil && t.UnitID == u.ID {
			e.state.Vacate(t.ID)
		}
	}
	if u.CarriedBy != "" {
		if c, err := e.state.Unit(u.CarriedBy); err == nil {
			c.CarriedUnits = removeID(c.CarriedUnits, u.ID)
		}
	}
	e.state.RemoveUnit(id)
}

func (e *Engine) applyRepair(ev core.RepairEvent) error {
	u, err := e.state.Unit(ev.UnitID)
	if err != nil {
		return err
	}

	e.publish(ev)

	u.Health = ev.NewHealth
	return nil
}

func (e *Engine) applyBuild(ev core.BuildEvent) error {
	t, err := e.state.Tile(ev.TileID)
	if err != nil {
		return err
	}
	if e.state.HasUnit(ev.Unit.ID) {
		return fmt.Errorf("building unit %q: %w", ev.Unit.ID, world.ErrDuplicate)
	}

	e.publish(ev)

	u := ev.Unit.Clone()
	u.TileID = t.ID
	u.CarriedBy = ""
	u.Moved = true
	if err := e.state.AddUnit(u); err != nil {
		return err
	}
	if t.UnitID == "" {
		t.UnitID = u.ID
	}
	return nil
}

func (e *Engine) applyRegenerateCapturePoints(ev core.RegenerateCapturePointsEvent) error {
	t, err := e.state.Tile(ev.TileID)
	if err != nil {
		return err
	}

	e.publish(ev)

	t.CapturePoints = ev.NewCapturePoints
	t.BeingCaptured = false
	return nil
}

func (e *Engine) applyProduceFunds(ev core.ProduceFundsEvent) error {
	if _, err := e.state.Tile(ev.TileID); err != nil {
		return err
	}

	e.publish(ev)
	return nil
}

func (e *Engine) applyBeginTurn(ev core.BeginTurnEvent) error {
	if _, err := e.state.Player(ev.Player); err != nil {
		return err
	}

	e.publish(ev)

	e.state.SetInTurn(ev.Player)
	return nil
}

// applyEndTurn resets the moved flag of every unit, whoever owns it.
func (e *Engine) applyEndTurn(ev core.EndTurnEvent) error {
	if _, err := e.state.Player(ev.Player); err != nil {
		return err
	}

	e.publish(ev)

	for _, u := range e.state.Units() {
		u.Moved = false
	}
	return nil
}

func (e *Engine) applyTurnTimeout(ev core.TurnTimeoutEvent) error {
	if _, err := e.state.Player(ev.Player); err != nil {
		return err
	}

	e.publish(ev)
	return nil
}

func (e *Engine) applyFinished(ev core.FinishedEvent) error {
	e.publish(ev)

	e.state.SetGameState(core.GameFinished)
	return nil
}

func (e *Engine) applySurrender(ev core.SurrenderEvent) error {
	if _, err := e.state.Player(ev.Player); err != nil {
		return err
	}

	e.publish(ev)

	var owned []string
	for _, u := range e.state.Units() {
		if u.Owner == ev.Player {
			owned = append(owned, u.ID)
		}
	}
	// destroying a carrier also removes its cargo, so later ids may already be gone
	for _, id := range owned {
		if e.state.HasUnit(id) {
			e.destroy(id)
		}
	}
	for _, t := range e.state.Tiles() {
		if t.Owner == ev.Player {
			t.Owner = core.NeutralPlayer
		}
	}
	return nil
}

func removeID(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}
