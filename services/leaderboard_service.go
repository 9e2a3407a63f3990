package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"partyup/config"
	"partyup/internal/status"
	"partyup/models"
)

// LeaderboardService aggregates scoring actions into per-event rankings.
// Increments are commutative and associative, so out-of-order delivery of
// actions converges to the same totals; the service mutex only protects
// the maps, it imposes no ordering.
type LeaderboardService struct {
	Redis  *redis.Client
	events *EventService
	Config *config.Config

	mu      sync.Mutex
	entries map[string]map[string]*models.LeaderboardEntry
}

func NewLeaderboardService(redisClient *redis.Client, events *EventService, cfg *config.Config) *LeaderboardService {
	return &LeaderboardService{
		Redis:   redisClient,
		events:  events,
		Config:  cfg,
		entries: make(map[string]map[string]*models.LeaderboardEntry),
	}
}

// RecordAction applies one scoring action. Accepted while the event is
// ONGOING, and after OUTDATED only within the freeze window measured from
// the event's effective end.
func (s *LeaderboardService) RecordAction(ctx context.Context, eventID, userID string, action models.ScoreAction) error {
	ev, err := s.events.Get(eventID)
	if err != nil {
		return err
	}

	switch ev.Status {
	case models.StatusOngoing:
	case models.StatusOutdated:
		closesAt := ev.EffectiveEnd(s.Config.DefaultEventDuration).Add(s.Config.ScoringFreezeWindow)
		if time.Now().After(closesAt) {
			return status.ErrEventClosedForScoring
		}
	default:
		return status.ErrEventClosedForScoring
	}

	points := action.Points()
	if points == 0 {
		return nil
	}

	s.mu.Lock()
	byUser, ok := s.entries[eventID]
	if !ok {
		byUser = make(map[string]*models.LeaderboardEntry)
		s.entries[eventID] = byUser
	}
	entry, ok := byUser[userID]
	if !ok {
		entry = &models.LeaderboardEntry{EventID: eventID, UserID: userID}
		byUser[userID] = entry
	}
	entry.Score += points
	entry.LastUpdated = time.Now()
	score := entry.Score
	s.mu.Unlock()

	s.mirrorScore(ctx, eventID, userID, points, score)
	return nil
}

// Leaderboard returns the event's entries ranked by score descending, ties
// broken by earliest last update so early engagement wins.
func (s *LeaderboardService) Leaderboard(eventID string) []models.LeaderboardEntry {
	s.mu.Lock()
	byUser := s.entries[eventID]
	ranked := make([]models.LeaderboardEntry, 0, len(byUser))
	for _, entry := range byUser {
		ranked = append(ranked, *entry)
	}
	s.mu.Unlock()

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].LastUpdated.Before(ranked[j].LastUpdated)
	})
	return ranked
}

// Score returns one user's current score for an event.
func (s *LeaderboardService) Score(eventID, userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byUser, ok := s.entries[eventID]; ok {
		if entry, ok := byUser[userID]; ok {
			return entry.Score
		}
	}
	return 0
}

// mirrorScore keeps the Redis sorted set in step and publishes the update
// for live streams. Both are best-effort mirrors of the in-memory state.
func (s *LeaderboardService) mirrorScore(ctx context.Context, eventID, userID string, points, score int64) {
	if s.Redis == nil {
		return
	}

	boardKey := fmt.Sprintf("leaderboard:%s", eventID)
	if err := s.Redis.ZIncrBy(ctx, boardKey, float64(points), userID).Err(); err != nil {
		slog.Warn("leaderboard mirror failed", "event_id", eventID, "error", err)
	}

	payload, err := json.Marshal(map[string]any{
		"event_id": eventID,
		"user_id":  userID,
		"score":    score,
	})
	if err != nil {
		return
	}
	if err := s.Redis.Publish(ctx, fmt.Sprintf("event_scores:%s", eventID), payload).Err(); err != nil {
		slog.Warn("leaderboard publish failed", "event_id", eventID, "error", err)
	}
}
