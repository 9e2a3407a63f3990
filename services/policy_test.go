package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"partyup/config"
	"partyup/internal/status"
	"partyup/models"
)

func newTestPolicy() *SchedulingPolicy {
	return NewSchedulingPolicy(&config.Config{
		StandardHorizon: 720 * time.Hour, // 30 days
		PremiumHorizon:  0,               // unlimited
	})
}

func TestSchedulingPolicy_ValidateStart(t *testing.T) {
	policy := newTestPolicy()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		tier    models.Tier
		start   time.Time
		wantErr error
	}{
		{"Standard within horizon", models.TierStandard, now.Add(24 * time.Hour), nil},
		{"Standard at the horizon boundary", models.TierStandard, now.Add(720 * time.Hour), nil},
		{"Standard 40 days out rejected", models.TierStandard, now.Add(40 * 24 * time.Hour), status.ErrHorizonExceeded},
		{"Premium 40 days out accepted", models.TierPremium, now.Add(40 * 24 * time.Hour), nil},
		{"Premium a year out accepted", models.TierPremium, now.Add(365 * 24 * time.Hour), nil},
		{"Start exactly now rejected", models.TierStandard, now, status.ErrPastStartTime},
		{"Start in the past rejected", models.TierStandard, now.Add(-time.Minute), status.ErrPastStartTime},
		{"Past start rejected for premium too", models.TierPremium, now.Add(-time.Minute), status.ErrPastStartTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.ValidateStart(tt.tier, tt.start, now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestSchedulingPolicy_FiniteHorizonForBothTiers(t *testing.T) {
	policy := NewSchedulingPolicy(&config.Config{
		StandardHorizon: 720 * time.Hour,
		PremiumHorizon:  8760 * time.Hour, // one year ceiling
	})
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, policy.ValidateStart(models.TierPremium, now.Add(300*24*time.Hour), now))
	assert.ErrorIs(t, policy.ValidateStart(models.TierPremium, now.Add(400*24*time.Hour), now), status.ErrHorizonExceeded)
}
