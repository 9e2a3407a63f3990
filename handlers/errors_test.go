package handlers

import (
	"errors"
	"testing"

	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partyup/internal/status"
)

func TestApiError_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"Event not found", status.ErrEventNotFound, 404},
		{"Record not found", status.ErrRecordNotFound, 404},
		{"Not the creator", status.ErrNotCreator, 403},
		{"Not the receiver", status.ErrNotReceiver, 403},
		{"Past start time", status.ErrPastStartTime, 400},
		{"Horizon exceeded", status.ErrHorizonExceeded, 400},
		{"Invalid amount", status.ErrInvalidAmount, 400},
		{"Below minimum donation", status.ErrBelowMinDonation, 400},
		{"Self friend request", status.ErrSelfRequest, 400},
		{"Invalid transition", status.ErrInvalidTransition, 400},
		{"Already joined", status.ErrAlreadyJoined, 400},
		{"Not joined", status.ErrNotJoined, 400},
		{"Already collected", status.ErrAlreadyCollected, 400},
		{"Duplicate friend request", status.ErrDuplicateRequest, 400},
		{"Event not joinable", status.ErrEventNotJoinable, 400},
		{"Event not donatable", status.ErrEventNotDonatable, 400},
		{"Closed for scoring", status.ErrEventClosedForScoring, 400},
		{"Admission halted", status.ErrAdmissionHalted, 503},
		{"Unknown error stays opaque", errors.New("disk on fire"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *router.ApiError
			require.ErrorAs(t, apiError(tt.err), &apiErr)
			assert.Equal(t, tt.wantCode, apiErr.Status)
		})
	}
}

func TestApiError_WrappedSentinel(t *testing.T) {
	wrapped := apiError(status.ErrEventNotFound)

	var apiErr *router.ApiError
	require.ErrorAs(t, wrapped, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestApiError_UnknownMessageHidden(t *testing.T) {
	var apiErr *router.ApiError
	require.ErrorAs(t, apiError(errors.New("secret internal detail")), &apiErr)
	assert.NotContains(t, apiErr.Message, "secret")
}
