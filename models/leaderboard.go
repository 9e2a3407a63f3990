package models

import (
	"time"
)

type ScoreAction string

const (
	ActionMediaUpload ScoreAction = "MEDIA_UPLOAD"
	ActionComment     ScoreAction = "COMMENT"
	ActionReaction    ScoreAction = "REACTION"
)

// actionPoints holds the fixed point value per action type. Increments are
// commutative so no ordering guarantee is needed for the final score.
var actionPoints = map[ScoreAction]int64{
	ActionMediaUpload: 10,
	ActionComment:     3,
	ActionReaction:    1,
}

// Points returns the point value for the action, or 0 for unknown actions.
func (a ScoreAction) Points() int64 {
	return actionPoints[a]
}

// LeaderboardEntry is one user's running score for an event, created
// lazily on the first scorable action.
type LeaderboardEntry struct {
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Score       int64     `json:"score"`
	LastUpdated time.Time `json:"last_updated"`
}
