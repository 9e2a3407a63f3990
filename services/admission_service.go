package services

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"partyup/config"
	"partyup/internal/status"
	"partyup/models"
	"partyup/monitoring"
)

// AdmissionService arbitrates join requests against event capacity. All
// decisions for a single event are serialized behind that event's own
// mutex, so two concurrent joins can never both take the last slot;
// unrelated events stay fully concurrent.
type AdmissionService struct {
	Redis    *redis.Client
	notifier *Notifier
	events   *EventService
	monitor  *monitoring.Monitor
	Config   *config.Config

	mu    sync.Mutex
	rooms map[string]*eventAdmission

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// eventAdmission is the per-event admission state. Its mutex is the keyed
// exclusive section required for linearizable join decisions.
type eventAdmission struct {
	mu       sync.Mutex
	admitted map[string]*models.Attendance
	waiting  []*models.Attendance
	halted   bool
}

func NewAdmissionService(redisClient *redis.Client, notifier *Notifier, events *EventService, monitor *monitoring.Monitor, cfg *config.Config) *AdmissionService {
	return &AdmissionService{
		Redis:    redisClient,
		notifier: notifier,
		events:   events,
		monitor:  monitor,
		Config:   cfg,
		rooms:    make(map[string]*eventAdmission),
		stopChan: make(chan struct{}),
	}
}

func (s *AdmissionService) room(eventID string) *eventAdmission {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[eventID]
	if !ok {
		r = &eventAdmission{admitted: make(map[string]*models.Attendance)}
		s.rooms[eventID] = r
	}
	return r
}

// RequestJoin admits the user when a slot is free, otherwise places them
// in the wait queue. PREMIUM requesters are inserted ahead of every
// waiting STANDARD requester but behind earlier PREMIUM ones; admitted
// attendees are never preempted. A completed admission stands even if the
// caller's request is later cancelled.
func (s *AdmissionService) RequestJoin(ctx context.Context, eventID, userID string, isPremium bool) (*models.JoinOutcome, error) {
	st, err := s.events.Status(eventID)
	if err != nil {
		return nil, err
	}
	if st != models.StatusUpcoming && st != models.StatusOngoing {
		s.monitor.TrackAdmission("join", eventID, "not_joinable")
		return nil, status.ErrEventNotJoinable
	}

	ev, err := s.events.Get(eventID)
	if err != nil {
		return nil, err
	}

	r := s.room(eventID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.halted {
		return nil, status.ErrAdmissionHalted
	}
	if _, ok := r.admitted[userID]; ok {
		s.monitor.TrackAdmission("join", eventID, "duplicate")
		return nil, status.ErrAlreadyJoined
	}
	for _, entry := range r.waiting {
		if entry.UserID == userID {
			s.monitor.TrackAdmission("join", eventID, "duplicate")
			return nil, status.ErrAlreadyJoined
		}
	}

	if err := r.checkCapacityInvariant(ev.MaxAttendees); err != nil {
		log.Printf("INVARIANT BREAK: event %s has %d admitted over capacity %d, admission halted",
			eventID, len(r.admitted), ev.MaxAttendees)
		return nil, err
	}

	att := &models.Attendance{
		UserID:      userID,
		EventID:     eventID,
		JoinedAt:    time.Now(),
		PremiumSkip: isPremium,
	}

	if ev.MaxAttendees == 0 || len(r.admitted) < ev.MaxAttendees {
		att.Admitted = true
		r.admitted[userID] = att
		s.monitor.TrackAdmission("join", eventID, "admitted")
		s.monitor.TrackOccupancy(eventID, len(r.admitted), len(r.waiting))

		s.clearPosition(ctx, eventID, userID)
		s.notifier.NotifyUser(ctx, userID, map[string]any{
			"type":     "admission",
			"status":   "admitted",
			"event_id": eventID,
		})
		return &models.JoinOutcome{Admitted: true}, nil
	}

	r.enqueue(att)
	s.monitor.TrackAdmission("join", eventID, "queued")
	s.monitor.TrackOccupancy(eventID, len(r.admitted), len(r.waiting))

	s.mirrorPositions(ctx, eventID, r.snapshotWaiting())
	s.notifier.NotifyUser(ctx, userID, map[string]any{
		"type":     "admission",
		"status":   "queued",
		"event_id": eventID,
		"position": att.QueuePosition,
	})
	return &models.JoinOutcome{Admitted: false, Position: att.QueuePosition}, nil
}

// enqueue inserts into the wait queue preserving the tier ordering: a
// premium entry goes before the first waiting standard entry, FIFO within
// its own tier. Ties break by arrival order, never by identity.
func (r *eventAdmission) enqueue(att *models.Attendance) {
	idx := len(r.waiting)
	if att.PremiumSkip {
		for i, entry := range r.waiting {
			if !entry.PremiumSkip {
				idx = i
				break
			}
		}
	}

	r.waiting = append(r.waiting, nil)
	copy(r.waiting[idx+1:], r.waiting[idx:])
	r.waiting[idx] = att
	r.renumber()
}

func (r *eventAdmission) renumber() {
	for i, entry := range r.waiting {
		entry.QueuePosition = i + 1
	}
}

// snapshotWaiting copies the wait queue by value so callers can read
// positions after releasing the room lock. Caller must hold r.mu; the
// entries themselves keep being renumbered under it.
func (r *eventAdmission) snapshotWaiting() []models.Attendance {
	waiting := make([]models.Attendance, len(r.waiting))
	for i, entry := range r.waiting {
		waiting[i] = *entry
	}
	return waiting
}

// checkCapacityInvariant halts admission on the event when the admitted
// count has somehow exceeded capacity. The state is left for manual
// reconciliation; no attendee is ever silently dropped.
func (r *eventAdmission) checkCapacityInvariant(maxAttendees int) error {
	if maxAttendees > 0 && len(r.admitted) > maxAttendees {
		r.halted = true
		return status.ErrAdmissionHalted
	}
	return nil
}

// Leave releases the user's slot or queue entry. Freeing an admitted slot
// promotes the head of the wait queue under the same per-event lock, so
// the tier ordering invariant is re-run atomically with the release. The
// promoted attendee, if any, is returned so callers can sync durable
// records.
func (s *AdmissionService) Leave(ctx context.Context, eventID, userID string) (*models.Attendance, error) {
	r := s.room(eventID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.admitted[userID]; ok {
		delete(r.admitted, userID)
		s.monitor.TrackAdmission("leave", eventID, "released")

		var promotedCopy *models.Attendance
		if len(r.waiting) > 0 {
			promoted := r.waiting[0]
			r.waiting = r.waiting[1:]
			r.renumber()

			promoted.Admitted = true
			promoted.QueuePosition = 0
			r.admitted[promoted.UserID] = promoted
			snapshot := *promoted
			promotedCopy = &snapshot

			s.clearPosition(ctx, eventID, promoted.UserID)
			s.notifier.NotifyUser(ctx, promoted.UserID, map[string]any{
				"type":     "admission",
				"status":   "admitted",
				"event_id": eventID,
			})
			s.mirrorPositions(ctx, eventID, r.snapshotWaiting())
		}

		s.monitor.TrackOccupancy(eventID, len(r.admitted), len(r.waiting))
		return promotedCopy, nil
	}

	for i, entry := range r.waiting {
		if entry.UserID == userID {
			r.waiting = append(r.waiting[:i], r.waiting[i+1:]...)
			r.renumber()
			s.clearPosition(ctx, eventID, userID)
			s.mirrorPositions(ctx, eventID, r.snapshotWaiting())
			s.monitor.TrackAdmission("leave", eventID, "dequeued")
			s.monitor.TrackOccupancy(eventID, len(r.admitted), len(r.waiting))
			return nil, nil
		}
	}

	return nil, status.ErrNotJoined
}

// Attendance returns the user's attendance record for the event, if any.
func (s *AdmissionService) Attendance(eventID, userID string) (*models.Attendance, error) {
	r := s.room(eventID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if att, ok := r.admitted[userID]; ok {
		snapshot := *att
		return &snapshot, nil
	}
	for _, entry := range r.waiting {
		if entry.UserID == userID {
			snapshot := *entry
			return &snapshot, nil
		}
	}
	return nil, status.ErrNotJoined
}

// Metrics reports current occupancy for the event.
func (s *AdmissionService) Metrics(eventID string) *models.QueueMetrics {
	r := s.room(eventID)
	r.mu.Lock()
	defer r.mu.Unlock()

	return &models.QueueMetrics{
		EventID:       eventID,
		AdmittedCount: len(r.admitted),
		WaitingCount:  len(r.waiting),
		LastUpdated:   time.Now(),
	}
}

// StartPositionUpdater launches the single goroutine that refreshes queue
// position mirrors and sends throttled position notifications.
func (s *AdmissionService) StartPositionUpdater() {
	s.wg.Add(1)
	go s.positionUpdater()
}

func (s *AdmissionService) positionUpdater() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.Config.QueuePositionUpdate)
	defer ticker.Stop()

	log.Println("Queue position updater started")

	for {
		select {
		case <-ticker.C:
			s.updateAllPositions(context.Background())
		case <-s.stopChan:
			log.Println("Queue position updater stopping")
			return
		}
	}
}

func (s *AdmissionService) updateAllPositions(ctx context.Context) {
	s.mu.Lock()
	eventIDs := make([]string, 0, len(s.rooms))
	for eventID := range s.rooms {
		eventIDs = append(eventIDs, eventID)
	}
	s.mu.Unlock()

	for _, eventID := range eventIDs {
		r := s.room(eventID)
		r.mu.Lock()
		waiting := r.snapshotWaiting()
		r.mu.Unlock()

		s.mirrorPositions(ctx, eventID, waiting)

		for _, entry := range waiting {
			if shouldNotifyPosition(entry.QueuePosition) {
				s.notifyPosition(ctx, entry.UserID, eventID, entry.QueuePosition)
			}
		}
	}
}

// shouldNotifyPosition throttles notifications: users near the front hear
// about every move, the deep queue only at coarse intervals.
func shouldNotifyPosition(position int) bool {
	switch {
	case position <= 5:
		return true
	case position <= 20:
		return position%2 == 0
	case position <= 100:
		return position%10 == 0
	}
	return position%50 == 0
}

func (s *AdmissionService) notifyPosition(ctx context.Context, userID, eventID string, position int) {
	message := fmt.Sprintf("You are #%d in line", position)
	if position == 1 {
		message = "You're next!"
	}

	s.notifier.NotifyUser(ctx, userID, map[string]any{
		"type":     "queue_position",
		"position": position,
		"event_id": eventID,
		"message":  message,
	})
}

func (s *AdmissionService) mirrorPositions(ctx context.Context, eventID string, waiting []models.Attendance) {
	if s.Redis == nil {
		return
	}

	for _, entry := range waiting {
		posKey := fmt.Sprintf("queue:position:%s:%s", eventID, entry.UserID)
		if err := s.Redis.Set(ctx, posKey, entry.QueuePosition, s.Config.QueuePositionTTL).Err(); err != nil {
			slog.Warn("queue position mirror failed", "event_id", eventID, "user_id", entry.UserID, "error", err)
		}
	}
}

func (s *AdmissionService) clearPosition(ctx context.Context, eventID, userID string) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(ctx, fmt.Sprintf("queue:position:%s:%s", eventID, userID))
}

// Shutdown stops the background updater.
func (s *AdmissionService) Shutdown() {
	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Admission service stopped")
	case <-time.After(10 * time.Second):
		log.Println("Timeout waiting for admission service to stop")
	}
}
