package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"partyup/models"
	"partyup/services"
)

type LeaderboardHandler struct {
	app         *pocketbase.PocketBase
	leaderboard *services.LeaderboardService
}

func NewLeaderboardHandler(app *pocketbase.PocketBase, leaderboard *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		app:         app,
		leaderboard: leaderboard,
	}
}

// RecordAction - apply one scoring action for the authenticated user
func (h *LeaderboardHandler) RecordAction(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	action := models.ScoreAction(req.Action)
	if action.Points() == 0 {
		return apis.NewBadRequestError("Unknown action type", nil)
	}

	eventID := e.Request.PathValue("id")
	if err := h.leaderboard.RecordAction(e.Request.Context(), eventID, e.Auth.Id, action); err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"score":    h.leaderboard.Score(eventID, e.Auth.Id),
	})
}

// Leaderboard - ranked scores for an event
func (h *LeaderboardHandler) Leaderboard(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("id")
	ranked := h.leaderboard.Leaderboard(eventID)

	return e.JSON(http.StatusOK, map[string]any{
		"event_id": eventID,
		"entries":  ranked,
	})
}
