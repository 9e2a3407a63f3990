package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"partyup/internal/status"
	"partyup/models"
	"partyup/monitoring"
)

var basisPointDivisor = decimal.NewFromInt(10000)

// DonationLedger tracks pledged and collected donations per event. The
// platform fee is computed once at pledge time from the event's basis
// points and frozen on the record; later fee changes on the event never
// touch existing pledges. Collection marks a record immutable.
type DonationLedger struct {
	events  *EventService
	monitor *monitoring.Monitor

	mu      sync.Mutex
	records map[string]*models.DonationRecord
	byEvent map[string][]string
}

func NewDonationLedger(events *EventService, monitor *monitoring.Monitor) *DonationLedger {
	return &DonationLedger{
		events:  events,
		monitor: monitor,
		records: make(map[string]*models.DonationRecord),
		byEvent: make(map[string][]string),
	}
}

// Pledge stores an uncollected donation record. Valid only while the event
// is UPCOMING or ONGOING with donations enabled.
func (l *DonationLedger) Pledge(ctx context.Context, eventID, userID string, amount decimal.Decimal) (*models.DonationRecord, error) {
	ev, err := l.events.Get(eventID)
	if err != nil {
		return nil, err
	}
	if !ev.DonationEnabled || (ev.Status != models.StatusUpcoming && ev.Status != models.StatusOngoing) {
		l.monitor.TrackDonation("pledge", "not_donatable")
		return nil, status.ErrEventNotDonatable
	}
	if !amount.IsPositive() {
		l.monitor.TrackDonation("pledge", "invalid_amount")
		return nil, status.ErrInvalidAmount
	}
	if amount.LessThan(ev.MinDonation) {
		l.monitor.TrackDonation("pledge", "below_minimum")
		return nil, status.ErrBelowMinDonation
	}

	record := &models.DonationRecord{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		Amount:    amount,
		Fee:       amount.Mul(decimal.NewFromInt(ev.FeeBasisPoints)).Div(basisPointDivisor),
		PledgedAt: time.Now(),
	}

	l.mu.Lock()
	l.records[record.ID] = record
	l.byEvent[eventID] = append(l.byEvent[eventID], record.ID)
	snapshot := *record
	l.mu.Unlock()

	l.monitor.TrackDonation("pledge", "ok")
	return &snapshot, nil
}

// Collect marks a record collected. Calling it again on a collected record
// fails with ErrAlreadyCollected; it never double-charges.
func (l *DonationLedger) Collect(ctx context.Context, recordID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[recordID]
	if !ok {
		return status.ErrRecordNotFound
	}
	if record.Collected {
		l.monitor.TrackDonation("collect", "already_collected")
		return status.ErrAlreadyCollected
	}
	if record.Amount.IsZero() {
		l.monitor.TrackDonation("collect", "invalid_amount")
		return status.ErrInvalidAmount
	}

	now := time.Now()
	record.Collected = true
	record.CollectedAt = &now

	l.monitor.TrackDonation("collect", "ok")
	return nil
}

// Record returns a copy of a single donation record.
func (l *DonationLedger) Record(recordID string) (*models.DonationRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[recordID]
	if !ok {
		return nil, status.ErrRecordNotFound
	}
	snapshot := *record
	return &snapshot, nil
}

// EventTotals derives collected and fee totals by summing the event's
// collected records. Pure read; nothing here caches a running total.
func (l *DonationLedger) EventTotals(eventID string) *models.DonationTotals {
	l.mu.Lock()
	defer l.mu.Unlock()

	totals := &models.DonationTotals{
		EventID:        eventID,
		CollectedTotal: decimal.Zero,
		FeeTotal:       decimal.Zero,
	}

	for _, recordID := range l.byEvent[eventID] {
		record := l.records[recordID]
		totals.RecordCount++
		if record.Collected {
			totals.CollectedCount++
			totals.CollectedTotal = totals.CollectedTotal.Add(record.Amount)
			totals.FeeTotal = totals.FeeTotal.Add(record.Fee)
		}
	}
	return totals
}
