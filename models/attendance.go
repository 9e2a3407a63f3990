package models

import (
	"time"
)

// Attendance relates a user to an event. Exactly one record exists per
// (user, event) pair; records are created only by the admission controller.
type Attendance struct {
	UserID        string    `json:"user_id"`
	EventID       string    `json:"event_id"`
	JoinedAt      time.Time `json:"joined_at"`
	QueuePosition int       `json:"queue_position"` // 0 once admitted
	Admitted      bool      `json:"admitted"`
	PremiumSkip   bool      `json:"premium_skip"`
}

// JoinOutcome is the admission controller's answer to a join request.
type JoinOutcome struct {
	Admitted bool `json:"admitted"`
	Position int  `json:"position,omitempty"` // 1-based wait queue position when queued
}

type QueueMetrics struct {
	EventID       string    `json:"event_id"`
	AdmittedCount int       `json:"admitted_count"`
	WaitingCount  int       `json:"waiting_count"`
	LastUpdated   time.Time `json:"last_updated"`
}
