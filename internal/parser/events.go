package parser

import (
	"encoding/json"
	"fmt"

	"github.com/hexwars/replica/pkg/core"
)

type actionJSON struct {
	Action string `json:"action"`
}

type buildJSON struct {
	Tile string   `json:"tile"`
	Unit unitJSON `json:"unit"`
}

// decodeAs unmarshals data into a fresh T.
func decodeAs[T core.Event](data []byte) (core.Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

var eventDecoders = map[core.EventKind]func([]byte) (core.Event, error){
	core.KindMove:                    decodeAs[core.MoveEvent],
	core.KindWait:                    decodeAs[core.WaitEvent],
	core.KindAttack:                  decodeAs[core.AttackEvent],
	core.KindCounterattack:           decodeAs[core.CounterattackEvent],
	core.KindCapture:                 decodeAs[core.CaptureEvent],
	core.KindCaptured:                decodeAs[core.CapturedEvent],
	core.KindDeploy:                  decodeAs[core.DeployEvent],
	core.KindUndeploy:                decodeAs[core.UndeployEvent],
	core.KindLoad:                    decodeAs[core.LoadEvent],
	core.KindUnload:                  decodeAs[core.UnloadEvent],
	core.KindDestroy:                 decodeAs[core.DestroyEvent],
	core.KindRepair:                  decodeAs[core.RepairEvent],
	core.KindBuild:                   decodeBuild,
	core.KindRegenerateCapturePoints: decodeAs[core.RegenerateCapturePointsEvent],
	core.KindProduceFunds:            decodeAs[core.ProduceFundsEvent],
	core.KindBeginTurn:               decodeAs[core.BeginTurnEvent],
	core.KindEndTurn:                 decodeAs[core.EndTurnEvent],
	core.KindTurnTimeout:             decodeAs[core.TurnTimeoutEvent],
	core.KindFinished:                decodeAs[core.FinishedEvent],
	core.KindSurrender:               decodeAs[core.SurrenderEvent],
}

func decodeBuild(data []byte) (core.Event, error) {
	var raw buildJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	u := raw.Unit.toUnit()
	u.TileID = raw.Tile
	u.CarriedBy = ""
	return core.BuildEvent{TileID: raw.Tile, Unit: u}, nil
}

// ParseEvent decodes one event payload, discriminated by its action field.
func (p *Parser) ParseEvent(data []byte) (core.Event, error) {
	var head actionJSON
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("error unmarshalling event: %w", err)
	}
	decode, ok := eventDecoders[core.EventKind(head.Action)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, head.Action)
	}
	ev, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling %s event: %w", head.Action, err)
	}
	return ev, nil
}

// ParseEventBatch decodes a JSON array of event payloads. Unknown actions are logged and
// skipped so the rest of the batch still applies; any other error aborts the batch.
func (p *Parser) ParseEventBatch(data []byte) ([]core.Event, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("error unmarshalling event batch: %w", err)
	}
	out := make([]core.Event, 0, len(raws))
	for i, raw := range raws {
		ev, err := p.ParseEvent(raw)
		if err != nil {
			if isUnknown(err) {
				p.logger.Warn("Skipping unknown event", "index", i, "error", err)
				continue
			}
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		out = append(out, ev)
	}
	return out, nil
}
