package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"partyup/internal/status"
	"partyup/models"
)

// FriendService manages friend requests. The lifecycle is independent of
// events; the leaderboard and notification flows only read the outcome.
type FriendService struct {
	notifier *Notifier

	mu       sync.Mutex
	requests map[string]*models.FriendRequest
}

func NewFriendService(notifier *Notifier) *FriendService {
	return &FriendService{
		notifier: notifier,
		requests: make(map[string]*models.FriendRequest),
	}
}

// Send creates a PENDING request. A second pending request between the
// same pair, in either direction, is rejected.
func (s *FriendService) Send(ctx context.Context, senderID, receiverID string) (*models.FriendRequest, error) {
	if senderID == receiverID {
		return nil, status.ErrSelfRequest
	}

	s.mu.Lock()
	for _, req := range s.requests {
		if req.Status != models.FriendRequestPending {
			continue
		}
		samePair := (req.SenderID == senderID && req.ReceiverID == receiverID) ||
			(req.SenderID == receiverID && req.ReceiverID == senderID)
		if samePair {
			s.mu.Unlock()
			return nil, status.ErrDuplicateRequest
		}
	}

	req := &models.FriendRequest{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.FriendRequestPending,
		CreatedAt:  time.Now(),
	}
	s.requests[req.ID] = req
	snapshot := *req
	s.mu.Unlock()

	s.notifier.NotifyUser(ctx, receiverID, map[string]any{
		"type":       "friend_request",
		"request_id": snapshot.ID,
		"sender_id":  senderID,
	})
	return &snapshot, nil
}

// Respond accepts or declines a PENDING request. Only the receiver may
// respond; any repeat response is a conflict.
func (s *FriendService) Respond(ctx context.Context, requestID, receiverID string, accept bool) (*models.FriendRequest, error) {
	s.mu.Lock()
	req, ok := s.requests[requestID]
	if !ok {
		s.mu.Unlock()
		return nil, status.ErrRecordNotFound
	}
	if req.ReceiverID != receiverID {
		s.mu.Unlock()
		return nil, status.ErrNotReceiver
	}
	if req.Status != models.FriendRequestPending {
		s.mu.Unlock()
		return nil, status.ErrDuplicateRequest
	}

	now := time.Now()
	if accept {
		req.Status = models.FriendRequestAccepted
	} else {
		req.Status = models.FriendRequestDeclined
	}
	req.RespondedAt = &now
	snapshot := *req
	s.mu.Unlock()

	s.notifier.NotifyUser(ctx, snapshot.SenderID, map[string]any{
		"type":       "friend_request_response",
		"request_id": snapshot.ID,
		"status":     string(snapshot.Status),
	})
	return &snapshot, nil
}

// Get returns a copy of one request.
func (s *FriendService) Get(requestID string) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok {
		return nil, status.ErrRecordNotFound
	}
	snapshot := *req
	return &snapshot, nil
}
