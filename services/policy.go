package services

import (
	"time"

	"partyup/config"
	"partyup/internal/status"
	"partyup/models"
)

// SchedulingPolicy validates proposed start times against the creator's
// tier-based horizon. It never clamps a time; out-of-policy proposals are
// rejected with a specific reason.
type SchedulingPolicy struct {
	standardHorizon time.Duration
	premiumHorizon  time.Duration // 0 = no ceiling
}

func NewSchedulingPolicy(cfg *config.Config) *SchedulingPolicy {
	return &SchedulingPolicy{
		standardHorizon: cfg.StandardHorizon,
		premiumHorizon:  cfg.PremiumHorizon,
	}
}

// ValidateStart checks the proposed start time for the given tier at the
// given current time. The horizon is enforced at proposal time only and is
// never re-validated after an event has been created.
func (p *SchedulingPolicy) ValidateStart(tier models.Tier, startTime, now time.Time) error {
	if !startTime.After(now) {
		return status.ErrPastStartTime
	}

	horizon := p.standardHorizon
	if tier == models.TierPremium {
		horizon = p.premiumHorizon
	}
	if horizon <= 0 {
		return nil
	}

	if startTime.After(now.Add(horizon)) {
		return status.ErrHorizonExceeded
	}
	return nil
}
