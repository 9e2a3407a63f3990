package handlers

import (
	"errors"

	"github.com/pocketbase/pocketbase/apis"

	"partyup/internal/status"
)

// apiError maps domain sentinels onto HTTP error responses. Validation and
// conflict errors are the caller's problem; unknown errors stay opaque.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrRecordNotFound):
		return apis.NewNotFoundError("Not found", err)
	case errors.Is(err, status.ErrNotCreator),
		errors.Is(err, status.ErrNotReceiver):
		return apis.NewForbiddenError("Forbidden", err)
	case errors.Is(err, status.ErrPastStartTime),
		errors.Is(err, status.ErrHorizonExceeded),
		errors.Is(err, status.ErrInvalidAmount),
		errors.Is(err, status.ErrBelowMinDonation),
		errors.Is(err, status.ErrSelfRequest),
		errors.Is(err, status.ErrInvalidTransition),
		errors.Is(err, status.ErrAlreadyJoined),
		errors.Is(err, status.ErrNotJoined),
		errors.Is(err, status.ErrAlreadyCollected),
		errors.Is(err, status.ErrDuplicateRequest),
		errors.Is(err, status.ErrEventNotJoinable),
		errors.Is(err, status.ErrEventNotDonatable),
		errors.Is(err, status.ErrEventClosedForScoring):
		return apis.NewBadRequestError(err.Error(), err)
	case errors.Is(err, status.ErrAdmissionHalted):
		return apis.NewApiError(503, err.Error(), err)
	}
	return apis.NewInternalServerError("Internal error", err)
}
