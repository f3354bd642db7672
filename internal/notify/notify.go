// Package notify pushes ticket scan events to a live feed.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/model"
	pubnub "github.com/pubnub/go/v7"
	"github.com/sirupsen/logrus"
)

const messageTypeValidated = "ticket_validated"

// ValidatedMessage is published on the event channel after every successful scan.
type ValidatedMessage struct {
	Type        string    `json:"type"`
	Code        string    `json:"code"`
	EventID     string    `json:"event_id"`
	UsesCount   int       `json:"uses_count"`
	MaxUses     int       `json:"max_uses"`
	ValidatedBy *string   `json:"validated_by,omitempty"`
	ValidatedAt time.Time `json:"validated_at"`
}

// Channel names the feed a door dashboard subscribes to for one event.
func Channel(eventID string) string {
	return fmt.Sprintf("event-%s", eventID)
}

type sendFunc func(ctx context.Context, channel string, message any) error

// Publisher implements service.Notifier on PubNub.
type Publisher struct {
	send   sendFunc
	logger *logrus.Logger
}

// NewPubNub builds a PubNub client for publishing.
func NewPubNub(publishKey, subscribeKey, secretKey, userID string) *pubnub.PubNub {
	cfg := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	cfg.PublishKey = publishKey
	cfg.SubscribeKey = subscribeKey
	cfg.SecretKey = secretKey
	return pubnub.NewPubNub(cfg)
}

func NewPublisher(pn *pubnub.PubNub, logger *logrus.Logger) *Publisher {
	return newPublisher(func(ctx context.Context, channel string, message any) error {
		_, status, err := pn.PublishWithContext(ctx).
			Channel(channel).
			Message(message).
			Execute()
		if err != nil {
			return fmt.Errorf("publish to %s: %w", channel, err)
		}
		if status.StatusCode >= 400 {
			return fmt.Errorf("publish to %s: status %d", channel, status.StatusCode)
		}
		return nil
	}, logger)
}

func newPublisher(send sendFunc, logger *logrus.Logger) *Publisher {
	return &Publisher{send: send, logger: logger}
}

func (p *Publisher) TicketValidated(ctx context.Context, t model.TicketWithContext, rec model.ValidationRecord) error {
	msg := ValidatedMessage{
		Type:        messageTypeValidated,
		Code:        t.TicketCode,
		EventID:     t.EventID,
		UsesCount:   t.UsesCount,
		MaxUses:     t.MaxUses,
		ValidatedBy: rec.ValidatedBy,
		ValidatedAt: rec.ValidatedAt,
	}
	if err := p.send(ctx, Channel(t.EventID), msg); err != nil {
		return err
	}
	p.logger.WithContext(ctx).WithFields(logrus.Fields{
		"code":     t.TicketCode,
		"event_id": t.EventID,
	}).Debug("published validation")
	return nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) TicketValidated(context.Context, model.TicketWithContext, model.ValidationRecord) error {
	return nil
}
