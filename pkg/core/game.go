// pkg/core/game.go
package core

import "time"

// NeutralPlayer is the player number of unowned tiles. It belongs to no team.
const NeutralPlayer = 0

// Position is a skewed hex grid coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// GameState is the lifecycle state of a game.
type GameState int

const (
	GamePregame GameState = iota
	GameInProgress
	GameFinished
)

var gameStateNames = map[GameState]string{
	GamePregame:    "pregame",
	GameInProgress: "inProgress",
	GameFinished:   "finished",
}

func (s GameState) String() string {
	if name, ok := gameStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseGameState maps a lifecycle state name to a GameState.
func ParseGameState(name string) (GameState, bool) {
	for s, n := range gameStateNames {
		if n == name {
			return s, true
		}
	}
	return GamePregame, false
}

// GameSettings are the per-game options chosen by the author.
type GameSettings struct {
	Public      bool
	TurnLength  time.Duration // zero means no turn limit
	BannedUnits []int
}

// GameInfo is the game metadata carried by the snapshot payload.
type GameInfo struct {
	GameID       string
	AuthorID     string
	Name         string
	MapID        string
	State        GameState
	TurnStart    time.Time
	TurnNumber   int
	RoundNumber  int
	InTurnNumber int
	Settings     GameSettings
}

// IsBanned reports whether a unit type may not be built in this game.
func (g GameInfo) IsBanned(unitType int) bool {
	for _, id := range g.Settings.BannedUnits {
		if id == unitType {
			return true
		}
	}
	return false
}

// Tile is one hex of the map.
type Tile struct {
	ID            string
	X             int
	Y             int
	Type          int
	Subtype       int
	Owner         int
	UnitID        string // empty when unoccupied
	CapturePoints int
	BeingCaptured bool
}

// Position returns the grid coordinate of the tile.
func (t Tile) Position() Position {
	return Position{X: t.X, Y: t.Y}
}

// Occupied reports whether a unit stands on the tile.
func (t Tile) Occupied() bool {
	return t.UnitID != ""
}

// Unit is a piece on the board. A unit is either on a tile or carried, never both.
type Unit struct {
	ID           string
	TileID       string // empty while carried
	Type         int
	Owner        int
	CarriedBy    string // empty unless carried
	Health       int
	Deployed     bool
	Moved        bool
	Capturing    bool
	CarriedUnits []string
}

// Clone returns a copy that shares no slices with u.
func (u Unit) Clone() Unit {
	c := u
	c.CarriedUnits = append([]string(nil), u.CarriedUnits...)
	return c
}

// Player is a participant of the game.
type Player struct {
	ID                 string
	UserID             string
	Name               string
	Number             int
	Team               int
	Funds              int
	Score              int
	EmailNotifications bool
	Hidden             bool
	IsMe               bool
}
