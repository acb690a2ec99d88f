package notifications

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/metrics"
)

// FCM caps multicast requests at 500 tokens.
const maxMulticastTokens = 500

// MulticastSender is satisfied by *messaging.Client.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// DeviceTokens resolves and prunes push tokens.
type DeviceTokens interface {
	DeviceTokens(ctx context.Context, ids []primitive.ObjectID) ([]string, error)
	RemoveDeviceTokens(ctx context.Context, tokens []string) error
}

// FCMPusher sends notifications through Firebase Cloud Messaging.
type FCMPusher struct {
	client MulticastSender
	tokens DeviceTokens
	log    logger.Logger
}

func NewFCMPusher(client MulticastSender, tokens DeviceTokens, log logger.Logger) *FCMPusher {
	return &FCMPusher{client: client, tokens: tokens, log: log}
}

func (p *FCMPusher) Push(ctx context.Context, recipients []primitive.ObjectID, msg Message) error {
	tokens, err := p.tokens.DeviceTokens(ctx, recipients)
	if err != nil {
		return fmt.Errorf("load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	data := map[string]string{"type": string(msg.Type)}
	if msg.RelatedItem != nil {
		data["itemId"] = msg.RelatedItem.Hex()
	}

	var stale []string
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(tokens))
		chunk := tokens[start:end]

		resp, err := p.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       chunk,
			Notification: &messaging.Notification{Title: msg.Title, Body: msg.Message},
			Data:         data,
		})
		if err != nil {
			metrics.PushFailures.Add(float64(len(chunk)))
			return fmt.Errorf("send multicast: %w", err)
		}

		for i, r := range resp.Responses {
			if r.Success {
				continue
			}
			metrics.PushFailures.Inc()
			if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
				stale = append(stale, chunk[i])
			}
		}
	}

	if len(stale) > 0 {
		if err := p.tokens.RemoveDeviceTokens(ctx, stale); err != nil {
			p.log.WarnContext(ctx, "prune device tokens", "count", len(stale), "error", err)
		}
	}
	return nil
}
