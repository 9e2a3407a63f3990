package status

import "errors"

// Validation errors: the caller must correct the input before retrying.
var (
	ErrPastStartTime    = errors.New("policy: start time is not in the future")
	ErrHorizonExceeded  = errors.New("policy: start time exceeds the creator's scheduling horizon")
	ErrInvalidAmount    = errors.New("ledger: amount must be positive")
	ErrBelowMinDonation = errors.New("ledger: amount is below the event's minimum donation")
	ErrSelfRequest      = errors.New("friends: cannot send a friend request to yourself")
)

// Conflict errors: the requested effect already holds or is disallowed
// from the current state.
var (
	ErrInvalidTransition = errors.New("lifecycle: transition not allowed from current status")
	ErrAlreadyJoined     = errors.New("admission: user already has an attendance for this event")
	ErrNotJoined         = errors.New("admission: user has no attendance for this event")
	ErrAlreadyCollected  = errors.New("ledger: donation record already collected")
	ErrDuplicateRequest  = errors.New("friends: a pending request between these users already exists")
)

// Capacity/state errors: depend on event status or wall-clock time and may
// become valid again only through legitimate transitions.
var (
	ErrEventNotJoinable      = errors.New("admission: event is not accepting joins in its current status")
	ErrEventNotDonatable     = errors.New("ledger: event is not accepting donations in its current status")
	ErrEventClosedForScoring = errors.New("leaderboard: event is closed for scoring")
	ErrAdmissionHalted       = errors.New("admission: admission halted pending reconciliation")
)

var (
	ErrEventNotFound  = errors.New("events: event not found")
	ErrRecordNotFound = errors.New("ledger: donation record not found")
	ErrNotCreator     = errors.New("events: only the creator may perform this action")
	ErrNotReceiver    = errors.New("friends: only the receiver may respond to a request")
)
