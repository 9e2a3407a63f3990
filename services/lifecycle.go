package services

import (
	"context"
	"log"
	"sync"
	"time"

	"partyup/config"
	"partyup/models"
	"partyup/monitoring"
)

// nextAutomaticStatus computes the time-driven transition an event is due
// for, if any. Re-evaluating an event already in its correct status yields
// no transition, which is what makes the sweep idempotent.
func nextAutomaticStatus(ev *models.Event, now time.Time, defaultDuration time.Duration) (models.EventStatus, bool) {
	switch ev.Status {
	case models.StatusUpcoming:
		if !now.Before(ev.StartTime) {
			// Overdue events that already outlived their window collapse
			// straight through ONGOING on the next sweep pass.
			return models.StatusOngoing, true
		}
	case models.StatusOngoing:
		if !now.Before(ev.EffectiveEnd(defaultDuration)) {
			return models.StatusOutdated, true
		}
	}
	return "", false
}

// LifecycleScheduler periodically sweeps non-terminal events and applies
// automatic transitions through the event service's compare-and-swap
// write. Running concurrently with creator cancel/postpone actions is
// safe: a sweep that loses the race applies nothing.
type LifecycleScheduler struct {
	events   *EventService
	monitor  *monitoring.Monitor
	config   *config.Config
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewLifecycleScheduler(events *EventService, monitor *monitoring.Monitor, cfg *config.Config) *LifecycleScheduler {
	return &LifecycleScheduler{
		events:   events,
		monitor:  monitor,
		config:   cfg,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop. One goroutine handles all events.
func (l *LifecycleScheduler) Start() {
	l.wg.Add(1)
	go l.sweepLoop()
	log.Printf("Lifecycle scheduler started (interval %s)", l.config.SweepInterval)
}

func (l *LifecycleScheduler) sweepLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep(context.Background())
		case <-l.stopChan:
			log.Println("Lifecycle scheduler stopping")
			return
		}
	}
}

// Sweep applies every due automatic transition exactly once per pass. The
// status writes are pure and the snapshots idempotent, so re-running a
// sweep after a crash produces no duplicate side effects.
func (l *LifecycleScheduler) Sweep(ctx context.Context) {
	started := time.Now()
	applied := 0

	for _, ev := range l.events.NonTerminal() {
		next, due := nextAutomaticStatus(ev, time.Now(), l.config.DefaultEventDuration)
		if !due {
			continue
		}

		ok, err := l.events.ApplyAutomatic(ctx, ev.ID, ev.Status, next)
		if err != nil {
			log.Printf("Sweep transition failed for event %s (%s -> %s): %v", ev.ID, ev.Status, next, err)
			continue
		}
		if ok {
			applied++
			l.monitor.TrackTransition(string(ev.Status), string(next))
		}
	}

	l.monitor.TrackSweep(time.Since(started))
	if applied > 0 {
		log.Printf("Sweep applied %d transitions in %s", applied, time.Since(started))
	}
}

// Shutdown stops the sweep loop and waits for it to drain.
func (l *LifecycleScheduler) Shutdown() {
	close(l.stopChan)

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Lifecycle scheduler stopped")
	case <-time.After(10 * time.Second):
		log.Println("Timeout waiting for lifecycle scheduler to stop")
	}
}
