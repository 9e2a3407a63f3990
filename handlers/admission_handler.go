package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"partyup/models"
	"partyup/services"
)

type AdmissionHandler struct {
	app       *pocketbase.PocketBase
	admission *services.AdmissionService
}

func NewAdmissionHandler(app *pocketbase.PocketBase, admission *services.AdmissionService) *AdmissionHandler {
	return &AdmissionHandler{
		app:       app,
		admission: admission,
	}
}

// Join - request admission to an event
func (h *AdmissionHandler) Join(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("id")
	isPremium := creatorTier(e.Auth) == models.TierPremium

	outcome, err := h.admission.RequestJoin(e.Request.Context(), eventID, e.Auth.Id, isPremium)
	if err != nil {
		return apiError(err)
	}

	if att, err := h.admission.Attendance(eventID, e.Auth.Id); err == nil {
		h.syncAttendanceRecord(att)
	}

	if outcome.Admitted {
		return e.JSON(http.StatusOK, map[string]any{
			"admitted": true,
			"event_id": eventID,
		})
	}
	return e.JSON(http.StatusOK, map[string]any{
		"admitted": false,
		"position": outcome.Position,
		"event_id": eventID,
	})
}

// Leave - give up an admitted slot or a queue entry
func (h *AdmissionHandler) Leave(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("id")
	promoted, err := h.admission.Leave(e.Request.Context(), eventID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	h.removeAttendanceRecord(eventID, e.Auth.Id)
	if promoted != nil {
		h.syncAttendanceRecord(promoted)
	}

	return e.JSON(http.StatusOK, map[string]any{"event_id": eventID, "left": true})
}

// attendanceFields maps an attendance entry onto the durable record's
// columns.
func attendanceFields(att *models.Attendance) map[string]any {
	return map[string]any{
		"event_id":       att.EventID,
		"user_id":        att.UserID,
		"joined_at":      att.JoinedAt,
		"queue_position": att.QueuePosition,
		"admitted":       att.Admitted,
		"premium_skip":   att.PremiumSkip,
	}
}

// syncAttendanceRecord upserts the durable copy of an attendance entry.
// The in-memory admission room stays authoritative; a failed write is
// logged, not fatal.
func (h *AdmissionHandler) syncAttendanceRecord(att *models.Attendance) {
	record, err := h.app.FindFirstRecordByFilter(
		"attendances",
		"event_id = {:event} && user_id = {:user}",
		dbx.Params{"event": att.EventID, "user": att.UserID},
	)
	if err != nil {
		collection, err := h.app.FindCollectionByNameOrId("attendances")
		if err != nil {
			slog.Warn("attendances collection missing", "error", err)
			return
		}
		record = core.NewRecord(collection)
	}

	record.Load(attendanceFields(att))

	if err := h.app.Save(record); err != nil {
		slog.Warn("attendance record save failed", "event_id", att.EventID, "user_id", att.UserID, "error", err)
	}
}

func (h *AdmissionHandler) removeAttendanceRecord(eventID, userID string) {
	record, err := h.app.FindFirstRecordByFilter(
		"attendances",
		"event_id = {:event} && user_id = {:user}",
		dbx.Params{"event": eventID, "user": userID},
	)
	if err != nil {
		return
	}
	if err := h.app.Delete(record); err != nil {
		slog.Warn("attendance record delete failed", "event_id", eventID, "user_id", userID, "error", err)
	}
}

// QueuePosition - current position, read from the Redis mirror with the
// in-memory state as fallback
func (h *AdmissionHandler) QueuePosition(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("id")
	ctx := e.Request.Context()

	position := -1
	if h.admission.Redis != nil {
		posKey := fmt.Sprintf("queue:position:%s:%s", eventID, e.Auth.Id)
		if pos, err := h.admission.Redis.Get(ctx, posKey).Int(); err == nil {
			position = pos
		} else {
			slog.Debug("queue position mirror miss", "key", posKey)
		}
	}

	att, err := h.admission.Attendance(eventID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}
	if position < 0 {
		position = att.QueuePosition
	}

	metrics := h.admission.Metrics(eventID)

	return e.JSON(http.StatusOK, map[string]any{
		"admitted":       att.Admitted,
		"position":       position,
		"admitted_count": metrics.AdmittedCount,
		"waiting_count":  metrics.WaitingCount,
	})
}
