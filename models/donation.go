package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DonationRecord is one donor's pledge against an event. The fee is
// computed from the event's basis points at pledge time and never
// recomputed; a collected record is immutable.
type DonationRecord struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Collected   bool            `json:"collected"`
	PledgedAt   time.Time       `json:"pledged_at"`
	CollectedAt *time.Time      `json:"collected_at,omitempty"`
}

// DonationTotals aggregates collected records for an event. Always derived
// by summing records, never cached.
type DonationTotals struct {
	EventID        string          `json:"event_id"`
	CollectedTotal decimal.Decimal `json:"collected_total"`
	FeeTotal       decimal.Decimal `json:"fee_total"`
	RecordCount    int             `json:"record_count"`
	CollectedCount int             `json:"collected_count"`
}
