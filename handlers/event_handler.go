package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"partyup/models"
	"partyup/services"
)

type EventHandler struct {
	app    *pocketbase.PocketBase
	events *services.EventService
}

func NewEventHandler(app *pocketbase.PocketBase, events *services.EventService) *EventHandler {
	return &EventHandler{
		app:    app,
		events: events,
	}
}

// creatorTier reads the verified tier off the auth record supplied by the
// identity provider. Anything but PREMIUM is treated as STANDARD.
func creatorTier(auth *core.Record) models.Tier {
	if auth.GetString("tier") == string(models.TierPremium) {
		return models.TierPremium
	}
	return models.TierStandard
}

// Create - create a new event, gated by the scheduling policy
func (h *EventHandler) Create(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		Location        string `json:"location"`
		StartTime       string `json:"start_time"`
		EndTime         string `json:"end_time"`
		MaxAttendees    int    `json:"max_attendees"`
		CoverImageRef   string `json:"cover_image_ref"`
		DonationEnabled bool   `json:"donation_enabled"`
		FeeBasisPoints  int64  `json:"fee_basis_points"`
		MinDonation     string `json:"min_donation"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Title == "" {
		return apis.NewBadRequestError("Title required", nil)
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return apis.NewBadRequestError("Invalid start_time", err)
	}
	var endTime *time.Time
	if req.EndTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			return apis.NewBadRequestError("Invalid end_time", err)
		}
		endTime = &parsed
	}

	minDonation := decimal.Zero
	if req.MinDonation != "" {
		minDonation, err = decimal.NewFromString(req.MinDonation)
		if err != nil {
			return apis.NewBadRequestError("Invalid min_donation", err)
		}
	}

	ev, err := h.events.CreateEvent(e.Request.Context(), services.CreateEventRequest{
		CreatorID:       e.Auth.Id,
		CreatorTier:     creatorTier(e.Auth),
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		StartTime:       startTime,
		EndTime:         endTime,
		MaxAttendees:    req.MaxAttendees,
		CoverImageRef:   req.CoverImageRef,
		DonationEnabled: req.DonationEnabled,
		FeeBasisPoints:  req.FeeBasisPoints,
		MinDonation:     minDonation,
	})
	if err != nil {
		return apiError(err)
	}

	h.persistEventRecord(ev)

	return e.JSON(http.StatusCreated, ev)
}

// Get - fetch a single event
func (h *EventHandler) Get(e *core.RequestEvent) error {
	ev, err := h.events.Get(e.Request.PathValue("id"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, ev)
}

// List - list durable event records, optionally filtered by status
func (h *EventHandler) List(e *core.RequestEvent) error {
	filter := "1=1"
	params := dbx.Params{}
	if st := e.Request.URL.Query().Get("status"); st != "" {
		filter = "status = {:status}"
		params["status"] = st
	}

	records, err := h.app.FindRecordsByFilter("events", filter, "-created", 100, 0, params)
	if err != nil {
		return apis.NewBadRequestError("Failed to list events", err)
	}

	return e.JSON(http.StatusOK, records)
}

// Cancel - creator cancels an UPCOMING or POSTPONED event
func (h *EventHandler) Cancel(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	eventID := e.Request.PathValue("id")
	if err := h.events.Cancel(e.Request.Context(), eventID, e.Auth.Id); err != nil {
		return apiError(err)
	}

	h.syncEventRecord(eventID)

	return e.JSON(http.StatusOK, map[string]any{"event_id": eventID, "status": string(models.StatusCancelled)})
}

// Postpone - creator moves the start time; re-validated against the horizon
func (h *EventHandler) Postpone(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		NewStartTime string `json:"new_start_time"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	newStart, err := time.Parse(time.RFC3339, req.NewStartTime)
	if err != nil {
		return apis.NewBadRequestError("Invalid new_start_time", err)
	}

	eventID := e.Request.PathValue("id")
	if err := h.events.Postpone(e.Request.Context(), eventID, e.Auth.Id, newStart); err != nil {
		return apiError(err)
	}

	h.syncEventRecord(eventID)

	ev, err := h.events.Get(eventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, ev)
}

// persistEventRecord writes the durable copy of a new event. The domain
// registry stays authoritative; a failed write is logged, not fatal.
func (h *EventHandler) persistEventRecord(ev *models.Event) {
	collection, err := h.app.FindCollectionByNameOrId("events")
	if err != nil {
		slog.Warn("events collection missing", "error", err)
		return
	}

	record := core.NewRecord(collection)
	record.Set("event_id", ev.ID)
	record.Set("creator_id", ev.CreatorID)
	record.Set("title", ev.Title)
	record.Set("description", ev.Description)
	record.Set("location", ev.Location)
	record.Set("start_time", ev.StartTime)
	if ev.EndTime != nil {
		record.Set("end_time", *ev.EndTime)
	}
	record.Set("max_attendees", ev.MaxAttendees)
	record.Set("status", string(ev.Status))
	record.Set("cover_image_ref", ev.CoverImageRef)
	record.Set("donation_enabled", ev.DonationEnabled)
	record.Set("fee_basis_points", ev.FeeBasisPoints)
	record.Set("min_donation", ev.MinDonation.String())

	if err := h.app.Save(record); err != nil {
		slog.Warn("event record save failed", "event_id", ev.ID, "error", err)
	}
}

// syncEventRecord refreshes the durable record after a status or schedule
// change.
func (h *EventHandler) syncEventRecord(eventID string) {
	ev, err := h.events.Get(eventID)
	if err != nil {
		return
	}

	record, err := h.app.FindFirstRecordByData("events", "event_id", eventID)
	if err != nil {
		slog.Warn("event record not found for sync", "event_id", eventID, "error", err)
		return
	}

	record.Set("status", string(ev.Status))
	record.Set("start_time", ev.StartTime)
	if ev.EndTime != nil {
		record.Set("end_time", *ev.EndTime)
	}

	if err := h.app.Save(record); err != nil {
		slog.Warn("event record sync failed", "event_id", eventID, "error", err)
	}
}
