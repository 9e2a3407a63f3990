package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"partyup/config"
	"partyup/models"
	"partyup/services"
	"partyup/utils"
)

type DonationHandler struct {
	app    *pocketbase.PocketBase
	ledger *services.DonationLedger
	redis  *redis.Client
	config *config.Config
}

func NewDonationHandler(app *pocketbase.PocketBase, ledger *services.DonationLedger, redisClient *redis.Client, cfg *config.Config) *DonationHandler {
	return &DonationHandler{
		app:    app,
		ledger: ledger,
		redis:  redisClient,
		config: cfg,
	}
}

// Pledge - record an uncollected donation and hand back a payment
// reference for the provider callback
func (h *DonationHandler) Pledge(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Amount string `json:"amount"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return apis.NewBadRequestError("Invalid amount", err)
	}

	eventID := e.Request.PathValue("id")
	record, err := h.ledger.Pledge(e.Request.Context(), eventID, e.Auth.Id, amount)
	if err != nil {
		return apiError(err)
	}

	h.persistDonationRecord(record)

	reference, err := utils.GenerateCode(8)
	if err != nil {
		return apis.NewInternalServerError("Failed to create payment reference", err)
	}
	if h.redis != nil {
		refKey := fmt.Sprintf("donation:ref:%s", reference)
		if err := h.redis.Set(e.Request.Context(), refKey, record.ID, 24*time.Hour).Err(); err != nil {
			slog.Warn("donation reference store failed", "record_id", record.ID, "error", err)
		}
	}

	return e.JSON(http.StatusCreated, map[string]any{
		"record_id": record.ID,
		"reference": reference,
		"amount":    record.Amount.String(),
		"fee":       record.Fee.String(),
	})
}

// Webhook - payment provider callback marking a pledge collected. The
// shared credential is checked against a bcrypt hash, never stored plain.
func (h *DonationHandler) Webhook(e *core.RequestEvent) error {
	credential := e.Request.Header.Get("X-Webhook-Credential")
	if h.config.WebhookCredentialHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(h.config.WebhookCredentialHash), []byte(credential)) != nil {
		return apis.NewUnauthorizedError("Invalid webhook credential", nil)
	}

	var req struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Status != "success" {
		return e.JSON(http.StatusOK, map[string]any{"handled": false})
	}
	if h.redis == nil {
		return apis.NewApiError(http.StatusServiceUnavailable, "Reference store unavailable", nil)
	}

	ctx := e.Request.Context()
	refKey := fmt.Sprintf("donation:ref:%s", req.Reference)
	recordID, err := h.redis.Get(ctx, refKey).Result()
	if err != nil {
		return apis.NewNotFoundError("Unknown payment reference", err)
	}

	if err := h.ledger.Collect(ctx, recordID); err != nil {
		return apiError(err)
	}
	h.redis.Del(ctx, refKey)

	h.syncDonationRecord(recordID)

	return e.JSON(http.StatusOK, map[string]any{"handled": true, "record_id": recordID})
}

// donationFields maps a ledger record onto the durable record's columns.
// Amounts are stored as decimal strings so no precision is lost.
func donationFields(rec *models.DonationRecord) map[string]any {
	fields := map[string]any{
		"record_id": rec.ID,
		"event_id":  rec.EventID,
		"user_id":   rec.UserID,
		"amount":    rec.Amount.String(),
		"fee":       rec.Fee.String(),
		"collected": rec.Collected,
	}
	if rec.CollectedAt != nil {
		fields["collected_at"] = *rec.CollectedAt
	}
	return fields
}

// persistDonationRecord writes the durable copy of a fresh pledge. The
// ledger stays authoritative; a failed write is logged, not fatal.
func (h *DonationHandler) persistDonationRecord(rec *models.DonationRecord) {
	collection, err := h.app.FindCollectionByNameOrId("donations")
	if err != nil {
		slog.Warn("donations collection missing", "error", err)
		return
	}

	record := core.NewRecord(collection)
	record.Load(donationFields(rec))

	if err := h.app.Save(record); err != nil {
		slog.Warn("donation record save failed", "record_id", rec.ID, "error", err)
	}
}

// syncDonationRecord refreshes the durable record after collection.
func (h *DonationHandler) syncDonationRecord(recordID string) {
	rec, err := h.ledger.Record(recordID)
	if err != nil {
		return
	}

	record, err := h.app.FindFirstRecordByData("donations", "record_id", recordID)
	if err != nil {
		slog.Warn("donation record not found for sync", "record_id", recordID, "error", err)
		return
	}

	record.Load(donationFields(rec))

	if err := h.app.Save(record); err != nil {
		slog.Warn("donation record sync failed", "record_id", recordID, "error", err)
	}
}

// Totals - collected and fee totals for an event, derived on read
func (h *DonationHandler) Totals(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("id")
	totals := h.ledger.EventTotals(eventID)

	return e.JSON(http.StatusOK, map[string]any{
		"event_id":        totals.EventID,
		"collected_total": totals.CollectedTotal.String(),
		"fee_total":       totals.FeeTotal.String(),
		"record_count":    totals.RecordCount,
		"collected_count": totals.CollectedCount,
	})
}
