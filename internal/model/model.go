package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists every table in the journal schema.
var DatabaseModels = []interface{}{
	&ReplicaInfo{},
	&Game{},
	&Player{},
	&JournalEntry{},
}

// ReplicaInfo is a single row identifying the recording instance.
type ReplicaInfo struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
}

func (*ReplicaInfo) TableName() string {
	return "replica_infos"
}

// Game is one recording session of one game.
type Game struct {
	gorm.Model
	SessionID string       `json:"sessionId" gorm:"size:36;uniqueIndex"`
	GameID    string       `json:"gameId" gorm:"size:64;index:idx_game_game_id"`
	Name      string       `json:"name" gorm:"size:200"`
	MapID     string       `json:"mapId" gorm:"size:64"`
	StartedAt time.Time    `json:"startedAt"`
	EndedAt   sql.NullTime `json:"endedAt"`
	Events    uint64       `json:"events"`
	Players   []Player     `json:"players" gorm:"foreignkey:GameID"`
}

func (*Game) TableName() string {
	return "games"
}

// Player is a participant as seen when the session started.
type Player struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	GameID   uint   `json:"gameId" gorm:"index:idx_player_game_id"`
	PlayerID string `json:"playerId" gorm:"size:64"`
	Name     string `json:"name" gorm:"size:127"`
	Number   int    `json:"number"`
	Team     int    `json:"team"`
}

func (*Player) TableName() string {
	return "players"
}

// JournalEntry is one recorded notification.
type JournalEntry struct {
	ID      uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	GameID  uint           `json:"gameId" gorm:"index:idx_journal_game_seq,priority:1"`
	Game    Game           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:GameID;"`
	Seq     uint64         `json:"seq" gorm:"index:idx_journal_game_seq,priority:2"`
	Kind    string         `json:"kind" gorm:"size:32;index:idx_journal_kind"`
	Turn    int            `json:"turn"`
	Round   int            `json:"round"`
	InTurn  int            `json:"inTurn"`
	Time    time.Time      `json:"time" gorm:"index:idx_journal_time"`
	Payload datatypes.JSON `json:"payload"`
}

func (*JournalEntry) TableName() string {
	return "journal_entries"
}
