package parser

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hexwars/replica/internal/world"
	"github.com/hexwars/replica/pkg/core"
)

type unitJSON struct {
	UnitID       string     `json:"unitId"`
	TileID       *string    `json:"tileId"`
	Type         int        `json:"type"`
	Owner        int        `json:"owner"`
	CarriedBy    *string    `json:"carriedBy"`
	Health       int        `json:"health"`
	Deployed     bool       `json:"deployed"`
	Moved        bool       `json:"moved"`
	Capturing    bool       `json:"capturing"`
	CarriedUnits []unitJSON `json:"carriedUnits"`
}

type tileJSON struct {
	TileID        string    `json:"tileId"`
	X             int       `json:"x"`
	Y             int       `json:"y"`
	Type          int       `json:"type"`
	Subtype       int       `json:"subtype"`
	Owner         int       `json:"owner"`
	CapturePoints int       `json:"capturePoints"`
	BeingCaptured bool      `json:"beingCaptured"`
	Unit          *unitJSON `json:"unit"`
}

type playerJSON struct {
	PlayerID     string `json:"playerId"`
	UserID       string `json:"userId"`
	PlayerName   string `json:"playerName"`
	PlayerNumber int    `json:"playerNumber"`
	TeamNumber   int    `json:"teamNumber"`
	Funds        int    `json:"funds"`
	Score        int    `json:"score"`
	Settings     struct {
		EmailNotifications bool `json:"emailNotifications"`
		Hidden             bool `json:"hidden"`
	} `json:"settings"`
	IsMe bool `json:"isMe"`
}

type gameJSON struct {
	GameID       string `json:"gameId"`
	AuthorID     string `json:"authorId"`
	Name         string `json:"name"`
	MapID        string `json:"mapId"`
	State        string `json:"state"`
	TurnStart    int64  `json:"turnStart"`
	TurnNumber   int    `json:"turnNumber"`
	RoundNumber  int    `json:"roundNumber"`
	InTurnNumber int    `json:"inTurnNumber"`
	Settings     struct {
		Public      bool  `json:"public"`
		TurnLength  *int  `json:"turnLength"`
		BannedUnits []int `json:"bannedUnits"`
	} `json:"settings"`
	Tiles   []tileJSON   `json:"tiles"`
	Players []playerJSON `json:"players"`
}

// toUnit converts a unit record without its carried units.
func (u unitJSON) toUnit() core.Unit {
	unit := core.Unit{
		ID:        u.UnitID,
		Type:      u.Type,
		Owner:     u.Owner,
		Health:    u.Health,
		Deployed:  u.Deployed,
		Moved:     u.Moved,
		Capturing: u.Capturing,
	}
	if u.TileID != nil {
		unit.TileID = *u.TileID
	}
	if u.CarriedBy != nil {
		unit.CarriedBy = *u.CarriedBy
	}
	return unit
}

// flatten appends u and, depth first, everything it carries. Position fields are taken
// from the nesting rather than from the record.
func flatten(u unitJSON, tileID, carrierID string, out []core.Unit) ([]core.Unit, error) {
	if u.UnitID == "" {
		return nil, fmt.Errorf("%w: unit without unitId", ErrInvalidPayload)
	}
	unit := u.toUnit()
	unit.TileID = tileID
	unit.CarriedBy = carrierID
	for _, c := range u.CarriedUnits {
		unit.CarriedUnits = append(unit.CarriedUnits, c.UnitID)
	}
	out = append(out, unit)

	var err error
	for _, c := range u.CarriedUnits {
		if out, err = flatten(c, "", u.UnitID, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ParseGameData decodes a snapshot payload. Units embedded in tiles and carriers are flattened
// into Snapshot.Units with their tile and carrier references filled in.
func (p *Parser) ParseGameData(data []byte) (world.Snapshot, error) {
	var raw gameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return world.Snapshot{}, fmt.Errorf("error unmarshalling game data: %w", err)
	}

	state, ok := core.ParseGameState(raw.State)
	if !ok {
		return world.Snapshot{}, fmt.Errorf("%w: game state %q", ErrInvalidPayload, raw.State)
	}

	snap := world.Snapshot{
		Info: core.GameInfo{
			GameID:       raw.GameID,
			AuthorID:     raw.AuthorID,
			Name:         raw.Name,
			MapID:        raw.MapID,
			State:        state,
			TurnNumber:   raw.TurnNumber,
			RoundNumber:  raw.RoundNumber,
			InTurnNumber: raw.InTurnNumber,
			Settings: core.GameSettings{
				Public:      raw.Settings.Public,
				BannedUnits: raw.Settings.BannedUnits,
			},
		},
	}
	if raw.TurnStart > 0 {
		snap.Info.TurnStart = time.Unix(raw.TurnStart, 0).UTC()
	}
	if raw.Settings.TurnLength != nil {
		snap.Info.Settings.TurnLength = time.Duration(*raw.Settings.TurnLength) * time.Second
	}

	var err error
	for _, t := range raw.Tiles {
		if t.TileID == "" {
			return world.Snapshot{}, fmt.Errorf("%w: tile at (%d,%d) without tileId", ErrInvalidPayload, t.X, t.Y)
		}
		tile := core.Tile{
			ID:            t.TileID,
			X:             t.X,
			Y:             t.Y,
			Type:          t.Type,
			Subtype:       t.Subtype,
			Owner:         t.Owner,
			CapturePoints: t.CapturePoints,
			BeingCaptured: t.BeingCaptured,
		}
		if t.Unit != nil {
			tile.UnitID = t.Unit.UnitID
			if snap.Units, err = flatten(*t.Unit, t.TileID, "", snap.Units); err != nil {
				return world.Snapshot{}, fmt.Errorf("tile %q: %w", t.TileID, err)
			}
		}
		snap.Tiles = append(snap.Tiles, tile)
	}

	for _, pl := range raw.Players {
		snap.Players = append(snap.Players, core.Player{
			ID:                 pl.PlayerID,
			UserID:             pl.UserID,
			Name:               pl.PlayerName,
			Number:             pl.PlayerNumber,
			Team:               pl.TeamNumber,
			Funds:              pl.Funds,
			Score:              pl.Score,
			EmailNotifications: pl.Settings.EmailNotifications,
			Hidden:             pl.Settings.Hidden,
			IsMe:               pl.IsMe,
		})
	}

	p.logger.Debug("Parsed game data",
		"gameId", snap.Info.GameID,
		"tiles", len(snap.Tiles),
		"units", len(snap.Units),
		"players", len(snap.Players))

	return snap, nil
}
