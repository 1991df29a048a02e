package models

import "time"

type MatchEventType string

const (
	EventGoal         MatchEventType = "goal"
	EventAssist       MatchEventType = "assist"
	EventYellowCard   MatchEventType = "yellow_card"
	EventRedCard      MatchEventType = "red_card"
	EventSubstitution MatchEventType = "substitution"
	EventFoul         MatchEventType = "foul"
)

func (t MatchEventType) Valid() bool {
	switch t {
	case EventGoal, EventAssist, EventYellowCard, EventRedCard, EventSubstitution, EventFoul:
		return true
	}
	return false
}

// Minute bounds for an event, inclusive. 130 leaves room for extra
// time and penalties.
const (
	MinEventMinute = 0
	MaxEventMinute = 130
)

// MatchEvent is an append-only scoring event owned by its match.
// Events are never updated; they may be deleted only while the owning
// match has not been completed.
type MatchEvent struct {
	ID        int            `json:"id" db:"id"`
	MatchID   int            `json:"match_id" db:"match_id"`
	Type      MatchEventType `json:"type" db:"type"`
	Minute    int            `json:"minute" db:"minute"`
	TeamID    int            `json:"team_id" db:"team_id"`
	PlayerID  int            `json:"player_id" db:"player_id"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
