package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    EventStatus
		to      EventStatus
		allowed bool
	}{
		{"Upcoming to ongoing", StatusUpcoming, StatusOngoing, true},
		{"Upcoming to cancelled", StatusUpcoming, StatusCancelled, true},
		{"Upcoming to postponed", StatusUpcoming, StatusPostponed, true},
		{"Upcoming to outdated skips ongoing", StatusUpcoming, StatusOutdated, false},
		{"Ongoing to outdated", StatusOngoing, StatusOutdated, true},
		{"Ongoing cannot be cancelled", StatusOngoing, StatusCancelled, false},
		{"Ongoing cannot be postponed", StatusOngoing, StatusPostponed, false},
		{"Postponed back to upcoming", StatusPostponed, StatusUpcoming, true},
		{"Postponed to cancelled", StatusPostponed, StatusCancelled, true},
		{"Postponed cannot go ongoing directly", StatusPostponed, StatusOngoing, false},
		{"Outdated is terminal", StatusOutdated, StatusUpcoming, false},
		{"Cancelled is terminal", StatusCancelled, StatusUpcoming, false},
		{"Cancelled cannot be revived to postponed", StatusCancelled, StatusPostponed, false},
		{"Self transition rejected", StatusUpcoming, StatusUpcoming, false},
		{"Unknown status has no edges", EventStatus("BOGUS"), StatusOngoing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestEventStatus_Terminal(t *testing.T) {
	assert.False(t, StatusUpcoming.Terminal())
	assert.False(t, StatusOngoing.Terminal())
	assert.False(t, StatusPostponed.Terminal())
	assert.True(t, StatusOutdated.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestEvent_EffectiveEnd(t *testing.T) {
	start := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)

	ev := &Event{StartTime: start}
	assert.Equal(t, start.Add(4*time.Hour), ev.EffectiveEnd(4*time.Hour))

	end := start.Add(90 * time.Minute)
	ev.EndTime = &end
	assert.Equal(t, end, ev.EffectiveEnd(4*time.Hour))
}

func TestScoreAction_Points(t *testing.T) {
	assert.Equal(t, int64(10), ActionMediaUpload.Points())
	assert.Equal(t, int64(3), ActionComment.Points())
	assert.Equal(t, int64(1), ActionReaction.Points())
	assert.Equal(t, int64(0), ScoreAction("SHRUG").Points())
}

func TestEvent_SnapshotRoundTrip(t *testing.T) {
	// Event snapshots travel through Redis as JSON; the monetary fields
	// must survive without losing precision.
	start := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)
	ev := Event{
		ID:              "evt-1",
		CreatorID:       "user-1",
		CreatorTier:     TierPremium,
		Title:           "Rooftop party",
		StartTime:       start,
		MaxAttendees:    50,
		Status:          StatusUpcoming,
		DonationEnabled: true,
		FeeBasisPoints:  500,
		MinDonation:     decimal.RequireFromString("2.50"),
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var restored Event
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, ev.ID, restored.ID)
	assert.Equal(t, ev.Status, restored.Status)
	assert.Equal(t, ev.CreatorTier, restored.CreatorTier)
	assert.True(t, ev.StartTime.Equal(restored.StartTime))
	assert.True(t, ev.MinDonation.Equal(restored.MinDonation))
	assert.Equal(t, ev.FeeBasisPoints, restored.FeeBasisPoints)
}
