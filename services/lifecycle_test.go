package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partyup/models"
)

func newTestScheduler(svc *EventService) *LifecycleScheduler {
	return NewLifecycleScheduler(svc, nil, svc.Config)
}

// backdate rewinds an event's start so the sweeper sees it as due. Only
// tests reach into the registry like this.
func backdate(svc *EventService, eventID string, d time.Duration) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	ev := svc.events[eventID]
	ev.StartTime = ev.StartTime.Add(-d)
	if ev.EndTime != nil {
		shifted := ev.EndTime.Add(-d)
		ev.EndTime = &shifted
	}
}

func TestNextAutomaticStatus(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	duration := 4 * time.Hour

	tests := []struct {
		name     string
		event    models.Event
		wantNext models.EventStatus
		wantDue  bool
	}{
		{
			name:    "Upcoming before start",
			event:   models.Event{Status: models.StatusUpcoming, StartTime: now.Add(time.Hour)},
			wantDue: false,
		},
		{
			name:     "Upcoming at start",
			event:    models.Event{Status: models.StatusUpcoming, StartTime: now},
			wantNext: models.StatusOngoing,
			wantDue:  true,
		},
		{
			name:     "Upcoming past start",
			event:    models.Event{Status: models.StatusUpcoming, StartTime: now.Add(-time.Hour)},
			wantNext: models.StatusOngoing,
			wantDue:  true,
		},
		{
			name:    "Ongoing within default window",
			event:   models.Event{Status: models.StatusOngoing, StartTime: now.Add(-time.Hour)},
			wantDue: false,
		},
		{
			name:     "Ongoing past default window",
			event:    models.Event{Status: models.StatusOngoing, StartTime: now.Add(-5 * time.Hour)},
			wantNext: models.StatusOutdated,
			wantDue:  true,
		},
		{
			name:    "Postponed never moves automatically",
			event:   models.Event{Status: models.StatusPostponed, StartTime: now.Add(-time.Hour)},
			wantDue: false,
		},
		{
			name:    "Cancelled never moves",
			event:   models.Event{Status: models.StatusCancelled, StartTime: now.Add(-time.Hour)},
			wantDue: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, due := nextAutomaticStatus(&tt.event, now, duration)
			assert.Equal(t, tt.wantDue, due)
			if tt.wantDue {
				assert.Equal(t, tt.wantNext, next)
			}
		})
	}
}

func TestNextAutomaticStatus_ExplicitEnd(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(-time.Minute)
	ev := models.Event{
		Status:    models.StatusOngoing,
		StartTime: now.Add(-time.Hour),
		EndTime:   &end,
	}

	next, due := nextAutomaticStatus(&ev, now, 4*time.Hour)
	assert.True(t, due, "explicit end time overrides the default window")
	assert.Equal(t, models.StatusOutdated, next)
}

func TestLifecycleScheduler_Sweep(t *testing.T) {
	svc := newTestEventService()
	scheduler := newTestScheduler(svc)

	due := mustCreateEvent(t, svc, CreateEventRequest{Title: "Due"})
	notDue := mustCreateEvent(t, svc, CreateEventRequest{Title: "Not yet"})
	backdate(svc, due.ID, 72*time.Hour)

	scheduler.Sweep(context.Background())

	st, _ := svc.Status(due.ID)
	assert.Equal(t, models.StatusOngoing, st)
	st, _ = svc.Status(notDue.ID)
	assert.Equal(t, models.StatusUpcoming, st)

	// The now-ONGOING event is already past its default window, so the
	// next pass closes it out. One transition per sweep, never a skip.
	scheduler.Sweep(context.Background())

	st, _ = svc.Status(due.ID)
	assert.Equal(t, models.StatusOutdated, st)
}

func TestLifecycleScheduler_SweepIdempotent(t *testing.T) {
	svc := newTestEventService()
	scheduler := newTestScheduler(svc)

	ev := mustCreateEvent(t, svc, CreateEventRequest{Title: "Stable"})
	backdate(svc, ev.ID, 72*time.Hour)

	for i := 0; i < 3; i++ {
		scheduler.Sweep(context.Background())
	}

	st, _ := svc.Status(ev.ID)
	assert.Equal(t, models.StatusOutdated, st, "repeated sweeps settle, they never oscillate")
}

func TestLifecycleScheduler_SweepVersusCancel(t *testing.T) {
	// A concurrent sweep and creator cancel must leave the event in
	// exactly one of the two outcomes, never a lost update.
	for i := 0; i < 50; i++ {
		svc := newTestEventService()
		scheduler := newTestScheduler(svc)

		ev := mustCreateEvent(t, svc, CreateEventRequest{Title: "Contended"})
		backdate(svc, ev.ID, 72*time.Hour)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			scheduler.Sweep(context.Background())
		}()
		go func() {
			defer wg.Done()
			_ = svc.Cancel(context.Background(), ev.ID, "creator-1")
		}()
		wg.Wait()

		st, err := svc.Status(ev.ID)
		require.NoError(t, err)
		assert.Contains(t, []models.EventStatus{models.StatusOngoing, models.StatusCancelled}, st)

		if st == models.StatusCancelled {
			// The cancel won; a later sweep must not resurrect the event.
			scheduler.Sweep(context.Background())
			st, _ = svc.Status(ev.ID)
			assert.Equal(t, models.StatusCancelled, st)
		}
	}
}

func TestLifecycleScheduler_StartAndShutdown(t *testing.T) {
	svc := newTestEventService()
	svc.Config.SweepInterval = 10 * time.Millisecond
	scheduler := newTestScheduler(svc)

	ev := mustCreateEvent(t, svc, CreateEventRequest{Title: "Background"})
	backdate(svc, ev.ID, 72*time.Hour)

	scheduler.Start()
	assert.Eventually(t, func() bool {
		st, _ := svc.Status(ev.ID)
		return st == models.StatusOngoing
	}, time.Second, 10*time.Millisecond)

	scheduler.Shutdown()
}
