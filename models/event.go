package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventStatus string

const (
	StatusUpcoming  EventStatus = "UPCOMING"
	StatusOngoing   EventStatus = "ONGOING"
	StatusOutdated  EventStatus = "OUTDATED"
	StatusCancelled EventStatus = "CANCELLED"
	StatusPostponed EventStatus = "POSTPONED"
)

// allowedTransitions is the exhaustive edge set of the event lifecycle.
// UPCOMING is the initial status; OUTDATED and CANCELLED are terminal.
var allowedTransitions = map[EventStatus][]EventStatus{
	StatusUpcoming:  {StatusOngoing, StatusCancelled, StatusPostponed},
	StatusOngoing:   {StatusOutdated},
	StatusPostponed: {StatusUpcoming, StatusCancelled},
	StatusOutdated:  {},
	StatusCancelled: {},
}

// CanTransition reports whether from -> to is an allowed lifecycle edge.
func CanTransition(from, to EventStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s EventStatus) Terminal() bool {
	return s == StatusOutdated || s == StatusCancelled
}

type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierPremium  Tier = "PREMIUM"
)

type Event struct {
	ID              string          `json:"id"`
	CreatorID       string          `json:"creator_id"`
	CreatorTier     Tier            `json:"creator_tier"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Location        string          `json:"location"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	MaxAttendees    int             `json:"max_attendees"` // 0 = unbounded
	Status          EventStatus     `json:"status"`
	CoverImageRef   string          `json:"cover_image_ref,omitempty"` // opaque object store handle
	DonationEnabled bool            `json:"donation_enabled"`
	FeeBasisPoints  int64           `json:"fee_basis_points"`
	MinDonation     decimal.Decimal `json:"min_donation"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// EffectiveEnd returns the moment the event stops being ONGOING: the
// explicit end time when set, otherwise start plus the default duration.
func (e *Event) EffectiveEnd(defaultDuration time.Duration) time.Time {
	if e.EndTime != nil {
		return *e.EndTime
	}
	return e.StartTime.Add(defaultDuration)
}
