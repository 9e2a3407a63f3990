package services

import (
	"context"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go"

	"partyup/utils"
)

// Notifier is the fire-and-forget client for the external notification
// service. Delivery is at-least-once on the provider side; nothing in this
// core waits for acknowledgment. A nil PubNub instance disables delivery,
// which keeps the domain services testable without the provider.
type Notifier struct {
	pubnub  *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

func NewNotifier(pn *pubnub.PubNub) *Notifier {
	return &Notifier{
		pubnub:  pn,
		breaker: utils.NewCircuitBreaker("pubnub"),
	}
}

// NotifyUser publishes a message to the user's private channel.
func (n *Notifier) NotifyUser(ctx context.Context, userID string, message map[string]any) {
	if n == nil || n.pubnub == nil {
		return
	}

	channel := fmt.Sprintf("user-%s", userID)
	_, err := n.breaker.Execute(ctx, func() (any, error) {
		_, pnStatus, err := n.pubnub.Publish().
			Channel(channel).
			Message(message).
			Execute()
		if err != nil {
			return nil, err
		}
		return pnStatus, nil
	})
	if err != nil {
		slog.Warn("notification publish failed", "channel", channel, "error", err)
	}
}

// NotifyEvent publishes a message to the event's broadcast channel.
func (n *Notifier) NotifyEvent(ctx context.Context, eventID string, message map[string]any) {
	if n == nil || n.pubnub == nil {
		return
	}

	channel := fmt.Sprintf("event-%s", eventID)
	_, err := n.breaker.Execute(ctx, func() (any, error) {
		_, pnStatus, err := n.pubnub.Publish().
			Channel(channel).
			Message(message).
			Execute()
		if err != nil {
			return nil, err
		}
		return pnStatus, nil
	})
	if err != nil {
		slog.Warn("notification publish failed", "channel", channel, "error", err)
	}
}
