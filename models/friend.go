package models

import (
	"time"
)

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "PENDING"
	FriendRequestAccepted FriendRequestStatus = "ACCEPTED"
	FriendRequestDeclined FriendRequestStatus = "DECLINED"
)

// FriendRequest lives independently of the event lifecycle.
type FriendRequest struct {
	ID          string              `json:"id"`
	SenderID    string              `json:"sender_id"`
	ReceiverID  string              `json:"receiver_id"`
	Status      FriendRequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	RespondedAt *time.Time          `json:"responded_at,omitempty"`
}
