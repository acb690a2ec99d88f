package notifications

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/pkg/pagination"
)

// Type enumerates the events users are notified about
type Type string

const (
	TypeClaimSubmitted Type = "claim_submitted"
	TypeClaimReceived  Type = "claim_received"
	TypeClaimApproved  Type = "claim_approved"
	TypeClaimRejected  Type = "claim_rejected"
	TypeItemClaimed    Type = "item_claimed"
	TypeItemReturned   Type = "item_returned"
	TypeItemHandover   Type = "item_handover"
)

// Notification represents a user notification
type Notification struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Recipient   primitive.ObjectID     `bson:"recipient" json:"recipientId"`
	Type        Type                   `bson:"type" json:"type"`
	Title       string                 `bson:"title" json:"title"`
	Message     string                 `bson:"message" json:"message"`
	RelatedItem *primitive.ObjectID    `bson:"relatedItem,omitempty" json:"relatedItemId,omitempty"`
	RelatedUser *primitive.ObjectID    `bson:"relatedUser,omitempty" json:"relatedUserId,omitempty"`
	Data        map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	IsRead      bool                   `bson:"isRead" json:"isRead"`
	ReadAt      *time.Time             `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt   time.Time              `bson:"createdAt" json:"createdAt"`
}

// Message is the payload shared by every recipient of one dispatch.
type Message struct {
	Type        Type                   `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	RelatedItem *primitive.ObjectID    `json:"relatedItem,omitempty"`
	RelatedUser *primitive.ObjectID    `json:"relatedUser,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// Envelope is what travels over the dispatch topic.
type Envelope struct {
	Recipients []primitive.ObjectID `json:"recipients"`
	Message    Message              `json:"message"`
	QueuedAt   time.Time            `json:"queuedAt"`
}

// Records expands the envelope into one notification per recipient.
func (e Envelope) Records(now time.Time) []Notification {
	records := make([]Notification, len(e.Recipients))
	for i, recipient := range e.Recipients {
		records[i] = Notification{
			ID:          primitive.NewObjectID(),
			Recipient:   recipient,
			Type:        e.Message.Type,
			Title:       e.Message.Title,
			Message:     e.Message.Message,
			RelatedItem: e.Message.RelatedItem,
			RelatedUser: e.Message.RelatedUser,
			Data:        e.Message.Data,
			CreatedAt:   now,
		}
	}
	return records
}

// Request DTOs

type ListQuery struct {
	pagination.Query
	UnreadOnly bool `form:"unreadOnly"`
}

// Response DTOs

type RelatedUser struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

type RelatedItem struct {
	ID    primitive.ObjectID `json:"id"`
	Title string             `json:"title"`
}

type NotificationResponse struct {
	Notification
	RelatedUserInfo *RelatedUser `json:"relatedUser,omitempty"`
	RelatedItemInfo *RelatedItem `json:"relatedItem,omitempty"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unreadCount"`
}

type MarkAllReadResponse struct {
	MarkedCount int64 `json:"markedCount"`
}
