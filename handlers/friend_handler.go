package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"partyup/models"
	"partyup/services"
)

type FriendHandler struct {
	app     *pocketbase.PocketBase
	friends *services.FriendService
}

func NewFriendHandler(app *pocketbase.PocketBase, friends *services.FriendService) *FriendHandler {
	return &FriendHandler{
		app:     app,
		friends: friends,
	}
}

// Send - send a friend request
func (h *FriendHandler) Send(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		ReceiverID string `json:"receiver_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.ReceiverID == "" {
		return apis.NewBadRequestError("receiver_id required", nil)
	}

	request, err := h.friends.Send(e.Request.Context(), e.Auth.Id, req.ReceiverID)
	if err != nil {
		return apiError(err)
	}

	h.persistFriendRequestRecord(request)

	return e.JSON(http.StatusCreated, request)
}

// Respond - accept or decline a pending request
func (h *FriendHandler) Respond(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Accept bool `json:"accept"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	requestID := e.Request.PathValue("id")
	request, err := h.friends.Respond(e.Request.Context(), requestID, e.Auth.Id, req.Accept)
	if err != nil {
		return apiError(err)
	}

	h.syncFriendRequestRecord(request)

	return e.JSON(http.StatusOK, request)
}

// friendRequestFields maps a friend request onto the durable record's
// columns.
func friendRequestFields(req *models.FriendRequest) map[string]any {
	fields := map[string]any{
		"request_id":  req.ID,
		"sender_id":   req.SenderID,
		"receiver_id": req.ReceiverID,
		"status":      string(req.Status),
	}
	if req.RespondedAt != nil {
		fields["responded_at"] = *req.RespondedAt
	}
	return fields
}

// persistFriendRequestRecord writes the durable copy of a new request.
// The in-memory registry stays authoritative; a failed write is logged,
// not fatal.
func (h *FriendHandler) persistFriendRequestRecord(req *models.FriendRequest) {
	collection, err := h.app.FindCollectionByNameOrId("friend_requests")
	if err != nil {
		slog.Warn("friend_requests collection missing", "error", err)
		return
	}

	record := core.NewRecord(collection)
	record.Load(friendRequestFields(req))

	if err := h.app.Save(record); err != nil {
		slog.Warn("friend request record save failed", "request_id", req.ID, "error", err)
	}
}

// syncFriendRequestRecord refreshes the durable record after a response.
func (h *FriendHandler) syncFriendRequestRecord(req *models.FriendRequest) {
	record, err := h.app.FindFirstRecordByData("friend_requests", "request_id", req.ID)
	if err != nil {
		slog.Warn("friend request record not found for sync", "request_id", req.ID, "error", err)
		return
	}

	record.Load(friendRequestFields(req))

	if err := h.app.Save(record); err != nil {
		slog.Warn("friend request record sync failed", "request_id", req.ID, "error", err)
	}
}
