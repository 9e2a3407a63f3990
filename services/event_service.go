package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"partyup/config"
	"partyup/internal/status"
	"partyup/models"
)

// EventService owns the event registry and every status mutation. Creator
// actions and the lifecycle sweeper both go through it, so a stale
// automatic transition can never overwrite a concurrent cancellation:
// every write is conditional on the previously-read status.
type EventService struct {
	Redis    *redis.Client
	notifier *Notifier
	policy   *SchedulingPolicy
	Config   *config.Config

	mu     sync.RWMutex
	events map[string]*models.Event
}

func NewEventService(redisClient *redis.Client, notifier *Notifier, policy *SchedulingPolicy, cfg *config.Config) *EventService {
	return &EventService{
		Redis:    redisClient,
		notifier: notifier,
		policy:   policy,
		Config:   cfg,
		events:   make(map[string]*models.Event),
	}
}

type CreateEventRequest struct {
	CreatorID       string
	CreatorTier     models.Tier
	Title           string
	Description     string
	Location        string
	StartTime       time.Time
	EndTime         *time.Time
	MaxAttendees    int
	CoverImageRef   string
	DonationEnabled bool
	FeeBasisPoints  int64
	MinDonation     decimal.Decimal
}

// CreateEvent validates the proposed start against the creator's horizon
// and registers the event as UPCOMING. The horizon is checked here once
// and never again.
func (s *EventService) CreateEvent(ctx context.Context, req CreateEventRequest) (*models.Event, error) {
	now := time.Now()
	if err := s.policy.ValidateStart(req.CreatorTier, req.StartTime, now); err != nil {
		return nil, err
	}

	feeBps := req.FeeBasisPoints
	if feeBps == 0 {
		feeBps = s.Config.DefaultFeeBasisPoints
	}

	ev := &models.Event{
		ID:              uuid.NewString(),
		CreatorID:       req.CreatorID,
		CreatorTier:     req.CreatorTier,
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxAttendees:    req.MaxAttendees,
		Status:          models.StatusUpcoming,
		CoverImageRef:   req.CoverImageRef,
		DonationEnabled: req.DonationEnabled,
		FeeBasisPoints:  feeBps,
		MinDonation:     req.MinDonation,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.mu.Lock()
	s.events[ev.ID] = ev
	snapshot := *ev
	s.mu.Unlock()

	s.snapshotEvent(ctx, &snapshot)

	return &snapshot, nil
}

// Get returns a copy of the event so callers never share mutable state.
func (s *EventService) Get(eventID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[eventID]
	if !ok {
		return nil, status.ErrEventNotFound
	}
	snapshot := *ev
	return &snapshot, nil
}

// Status returns the current status without copying the whole event.
func (s *EventService) Status(eventID string) (models.EventStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[eventID]
	if !ok {
		return "", status.ErrEventNotFound
	}
	return ev.Status, nil
}

// Cancel moves an UPCOMING or POSTPONED event to CANCELLED. Creator only.
func (s *EventService) Cancel(ctx context.Context, eventID, creatorID string) error {
	s.mu.Lock()
	ev, ok := s.events[eventID]
	if !ok {
		s.mu.Unlock()
		return status.ErrEventNotFound
	}
	if ev.CreatorID != creatorID {
		s.mu.Unlock()
		return status.ErrNotCreator
	}
	if !models.CanTransition(ev.Status, models.StatusCancelled) {
		s.mu.Unlock()
		return status.ErrInvalidTransition
	}

	ev.Status = models.StatusCancelled
	ev.UpdatedAt = time.Now()
	snapshot := *ev
	s.mu.Unlock()

	s.snapshotEvent(ctx, &snapshot)
	s.notifyTransition(ctx, &snapshot)
	return nil
}

// Postpone re-validates the new start time against the creator's current
// tier, then moves the event through POSTPONED back to UPCOMING with the
// new start in one serialized step. Attendance and wait-queue state are
// preserved across postponement.
func (s *EventService) Postpone(ctx context.Context, eventID, creatorID string, newStart time.Time) error {
	s.mu.Lock()
	ev, ok := s.events[eventID]
	if !ok {
		s.mu.Unlock()
		return status.ErrEventNotFound
	}
	if ev.CreatorID != creatorID {
		s.mu.Unlock()
		return status.ErrNotCreator
	}
	if !models.CanTransition(ev.Status, models.StatusPostponed) {
		s.mu.Unlock()
		return status.ErrInvalidTransition
	}
	if err := s.policy.ValidateStart(ev.CreatorTier, newStart, time.Now()); err != nil {
		s.mu.Unlock()
		return err
	}

	if ev.EndTime != nil {
		shifted := ev.EndTime.Add(newStart.Sub(ev.StartTime))
		ev.EndTime = &shifted
	}
	ev.StartTime = newStart
	ev.Status = models.StatusUpcoming
	ev.UpdatedAt = time.Now()
	snapshot := *ev
	s.mu.Unlock()

	s.snapshotEvent(ctx, &snapshot)
	s.notifyTransition(ctx, &snapshot)
	return nil
}

// ApplyAutomatic performs a compare-and-swap status write for the
// lifecycle sweeper. It returns false without error when the event moved
// away from the expected status in the meantime: a lost race with a
// creator action is a no-op, not a failure.
func (s *EventService) ApplyAutomatic(ctx context.Context, eventID string, from, to models.EventStatus) (bool, error) {
	if !models.CanTransition(from, to) {
		return false, status.ErrInvalidTransition
	}

	s.mu.Lock()
	ev, ok := s.events[eventID]
	if !ok {
		s.mu.Unlock()
		return false, status.ErrEventNotFound
	}
	if ev.Status != from {
		s.mu.Unlock()
		return false, nil
	}

	ev.Status = to
	ev.UpdatedAt = time.Now()
	snapshot := *ev
	s.mu.Unlock()

	s.snapshotEvent(ctx, &snapshot)
	s.notifyTransition(ctx, &snapshot)
	return true, nil
}

// NonTerminal returns copies of all events still subject to automatic
// transitions, ordered by start time for stable sweep logs.
func (s *EventService) NonTerminal() []*models.Event {
	s.mu.RLock()
	events := make([]*models.Event, 0, len(s.events))
	for _, ev := range s.events {
		if !ev.Status.Terminal() {
			snapshot := *ev
			events = append(events, &snapshot)
		}
	}
	s.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
	return events
}

// RestoreEvents reloads the registry from Redis snapshots on boot.
func (s *EventService) RestoreEvents(ctx context.Context) error {
	if s.Redis == nil {
		return nil
	}

	eventIDs, err := s.Redis.SMembers(ctx, "active_events").Result()
	if err != nil {
		return fmt.Errorf("restore events: %w", err)
	}

	restored := 0
	for _, eventID := range eventIDs {
		data, err := s.Redis.Get(ctx, fmt.Sprintf("event:%s", eventID)).Result()
		if err != nil {
			slog.Warn("event snapshot missing", "event_id", eventID, "error", err)
			continue
		}

		var ev models.Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			slog.Warn("event snapshot corrupt", "event_id", eventID, "error", err)
			continue
		}

		s.mu.Lock()
		s.events[ev.ID] = &ev
		s.mu.Unlock()
		restored++
	}

	slog.Info("event state restored", "events", restored)
	return nil
}

func (s *EventService) snapshotEvent(ctx context.Context, ev *models.Event) {
	if s.Redis == nil {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("event snapshot marshal failed", "event_id", ev.ID, "error", err)
		return
	}

	eventKey := fmt.Sprintf("event:%s", ev.ID)
	if err := s.Redis.Set(ctx, eventKey, data, 0).Err(); err != nil {
		slog.Warn("event snapshot write failed", "event_id", ev.ID, "error", err)
	}

	if ev.Status.Terminal() {
		s.Redis.SRem(ctx, "active_events", ev.ID)
	} else {
		s.Redis.SAdd(ctx, "active_events", ev.ID)
	}
}

func (s *EventService) notifyTransition(ctx context.Context, ev *models.Event) {
	s.notifier.NotifyEvent(ctx, ev.ID, map[string]any{
		"type":     "event_status",
		"event_id": ev.ID,
		"status":   string(ev.Status),
	})
	s.notifier.NotifyUser(ctx, ev.CreatorID, map[string]any{
		"type":     "event_status",
		"event_id": ev.ID,
		"status":   string(ev.Status),
	})
}
