// pkg/core/events.go
package core

// EventKind names an event. Values match the action strings of the wire format.
type EventKind string

const (
	KindGameData                EventKind = "gamedata"
	KindMove                    EventKind = "move"
	KindWait                    EventKind = "wait"
	KindAttack                  EventKind = "attack"
	KindCounterattack           EventKind = "counterattack"
	KindCapture                 EventKind = "capture"
	KindCaptured                EventKind = "captured"
	KindDeploy                  EventKind = "deploy"
	KindUndeploy                EventKind = "undeploy"
	KindLoad                    EventKind = "load"
	KindUnload                  EventKind = "unload"
	KindDestroy                 EventKind = "destroyed"
	KindRepair                  EventKind = "repair"
	KindBuild                   EventKind = "build"
	KindRegenerateCapturePoints EventKind = "regenerateCapturePoints"
	KindProduceFunds            EventKind = "produceFunds"
	KindBeginTurn               EventKind = "beginTurn"
	KindEndTurn                 EventKind = "endTurn"
	KindTurnTimeout             EventKind = "turnTimeout"
	KindFinished                EventKind = "finished"
	KindSurrender               EventKind = "surrender"
)

// Event is one authoritative state transition, or the synthetic gamedata notification.
// Implementations are plain values that own all of their data.
type Event interface {
	Kind() EventKind
}

// GameDataEvent is published once after a snapshot has been loaded.
type GameDataEvent struct {
	GameID string `json:"gameId"`
}

type MoveEvent struct {
	UnitID string     `json:"unit"`
	TileID string     `json:"tile"`
	Path   []Position `json:"path"`
}

type WaitEvent struct {
	UnitID string `json:"unit"`
}

type AttackEvent struct {
	AttackerID string `json:"attacker"`
	TargetID   string `json:"target"`
	Damage     int    `json:"damage"`
}

type CounterattackEvent struct {
	AttackerID string `json:"attacker"`
	TargetID   string `json:"target"`
	Damage     int    `json:"damage"`
}

// CaptureEvent reports capture progress. Left is the remaining capture points.
type CaptureEvent struct {
	UnitID string `json:"unit"`
	TileID string `json:"tile"`
	Left   int    `json:"left"`
}

type CapturedEvent struct {
	UnitID string `json:"unit"`
	TileID string `json:"tile"`
}

type DeployEvent struct {
	UnitID string `json:"unit"`
}

type UndeployEvent struct {
	UnitID string `json:"unit"`
}

type LoadEvent struct {
	UnitID    string `json:"unit"`
	CarrierID string `json:"carrier"`
}

type UnloadEvent struct {
	UnitID    string `json:"unit"`
	CarrierID string `json:"carrier"`
	TileID    string `json:"tile"`
}

type DestroyEvent struct {
	UnitID string `json:"unit"`
}

type RepairEvent struct {
	UnitID    string `json:"unit"`
	NewHealth int    `json:"newHealth"`
}

// BuildEvent carries the complete record of the unit built on TileID.
type BuildEvent struct {
	TileID string `json:"tile"`
	Unit   Unit   `json:"unit"`
}

type RegenerateCapturePointsEvent struct {
	TileID           string `json:"tile"`
	NewCapturePoints int    `json:"newCapturePoints"`
}

// ProduceFundsEvent is informational; funds are tracked by the server.
type ProduceFundsEvent struct {
	TileID string `json:"tile"`
}

type BeginTurnEvent struct {
	Player int `json:"player"`
}

type EndTurnEvent struct {
	Player int `json:"player"`
}

type TurnTimeoutEvent struct {
	Player int `json:"player"`
}

type FinishedEvent struct {
	Winner int `json:"winner"`
}

type SurrenderEvent struct {
	Player int `json:"player"`
}

func (GameDataEvent) Kind() EventKind                { return KindGameData }
func (MoveEvent) Kind() EventKind                    { return KindMove }
func (WaitEvent) Kind() EventKind                    { return KindWait }
func (AttackEvent) Kind() EventKind                  { return KindAttack }
func (CounterattackEvent) Kind() EventKind           { return KindCounterattack }
func (CaptureEvent) Kind() EventKind                 { return KindCapture }
func (CapturedEvent) Kind() EventKind                { return KindCaptured }
func (DeployEvent) Kind() EventKind                  { return KindDeploy }
func (UndeployEvent) Kind() EventKind                { return KindUndeploy }
func (LoadEvent) Kind() EventKind                    { return KindLoad }
func (UnloadEvent) Kind() EventKind                  { return KindUnload }
func (DestroyEvent) Kind() EventKind                 { return KindDestroy }
func (RepairEvent) Kind() EventKind                  { return KindRepair }
func (BuildEvent) Kind() EventKind                   { return KindBuild }
func (RegenerateCapturePointsEvent) Kind() EventKind { return KindRegenerateCapturePoints }
func (ProduceFundsEvent) Kind() EventKind            { return KindProduceFunds }
func (BeginTurnEvent) Kind() EventKind               { return KindBeginTurn }
func (EndTurnEvent) Kind() EventKind                 { return KindEndTurn }
func (TurnTimeoutEvent) Kind() EventKind             { return KindTurnTimeout }
func (FinishedEvent) Kind() EventKind                { return KindFinished }
func (SurrenderEvent) Kind() EventKind               { return KindSurrender }

// CloneEvent returns e with every slice copied, so the result shares no memory with the caller.
func CloneEvent(e Event) Event {
	switch ev := e.(type) {
	case MoveEvent:
		ev.Path = append([]Position(nil), ev.Path...)
		return ev
	case *MoveEvent:
		c := *ev
		c.Path = append([]Position(nil), ev.Path...)
		return c
	case BuildEvent:
		ev.Unit = ev.Unit.Clone()
		return ev
	case *BuildEvent:
		c := *ev
		c.Unit = ev.Unit.Clone()
		return c
	default:
		return e
	}
}
