package monitoring

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	admittedAttendees = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "admitted_attendees_total",
			Help: "Current number of admitted attendees per event",
		},
		[]string{"event_id"},
	)

	waitingAttendees = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waiting_attendees_total",
			Help: "Current wait queue length per event",
		},
		[]string{"event_id"},
	)

	admissionOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_operations_total",
			Help: "Total admission operations",
		},
		[]string{"operation", "event_id", "status"},
	)

	lifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Total automatic lifecycle transitions",
		},
		[]string{"from", "to"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lifecycle_sweep_duration_seconds",
			Help:    "Duration of lifecycle sweep passes",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	donationOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_operations_total",
			Help: "Total donation ledger operations",
		},
		[]string{"operation", "status"},
	)
)

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.collectQueueMetrics(context.Background())
	}
}

// collectQueueMetrics derives wait queue lengths from the position mirror
// keys (queue:position:<event>:<user>).
func (m *Monitor) collectQueueMetrics(ctx context.Context) {
	if m.redis == nil {
		return
	}

	counts := make(map[string]int)
	keys, _ := m.redis.Keys(ctx, "queue:position:*").Result()
	for _, key := range keys {
		rest := key[len("queue:position:"):]
		if idx := strings.LastIndex(rest, ":"); idx > 0 {
			counts[rest[:idx]]++
		}
	}
	for eventID, length := range counts {
		waitingAttendees.WithLabelValues(eventID).Set(float64(length))
	}
}

// TrackAdmission counts a single admission controller operation.
func (m *Monitor) TrackAdmission(operation, eventID, result string) {
	if m == nil {
		return
	}
	admissionOperations.WithLabelValues(operation, eventID, result).Inc()
}

// TrackOccupancy records the current admitted/waiting counts for an event.
func (m *Monitor) TrackOccupancy(eventID string, admitted, waiting int) {
	if m == nil {
		return
	}
	admittedAttendees.WithLabelValues(eventID).Set(float64(admitted))
	waitingAttendees.WithLabelValues(eventID).Set(float64(waiting))
}

// TrackTransition counts an applied automatic lifecycle transition.
func (m *Monitor) TrackTransition(from, to string) {
	if m == nil {
		return
	}
	lifecycleTransitions.WithLabelValues(from, to).Inc()
}

// TrackSweep records the duration of one lifecycle sweep pass.
func (m *Monitor) TrackSweep(duration time.Duration) {
	if m == nil {
		return
	}
	sweepDuration.Observe(duration.Seconds())
}

// TrackDonation counts a single donation ledger operation.
func (m *Monitor) TrackDonation(operation, result string) {
	if m == nil {
		return
	}
	donationOperations.WithLabelValues(operation, result).Inc()
}
