// Package notify is the client side of the platform's notification
// subsystem: given a message event, enqueue a durable notification. The
// consumer that turns events into notification records lives elsewhere.
package notify

import (
	"context"
	"time"
	"unicode/utf8"

	"messaging-service/internal/models"
)

// Event is the envelope published for every successfully sent message.
type Event struct {
	Type       string    `json:"type"`
	MessageID  uint      `json:"message_id"`
	SenderID   uint      `json:"sender_id"`
	ReceiverID uint      `json:"receiver_id"`
	Preview    string    `json:"preview"`
	SentAt     time.Time `json:"sent_at"`
}

const EventTypeMessageSent = "message.sent"

// previewLimit caps the preview at this many characters; full content is
// fetched from the store when the notification is opened.
const previewLimit = 120

type Dispatcher interface {
	MessageSent(ctx context.Context, msg *models.Message) error
}

// NewEvent builds the envelope for a persisted message.
func NewEvent(msg *models.Message) Event {
	preview := msg.Content
	// Truncate on a rune boundary so a multi-byte character is never cut
	// in half.
	if utf8.RuneCountInString(preview) > previewLimit {
		preview = string([]rune(preview)[:previewLimit])
	}
	if preview == "" && msg.HasAttachment() {
		preview = msg.FileName
	}
	return Event{
		Type:       EventTypeMessageSent,
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Preview:    preview,
		SentAt:     msg.Timestamp,
	}
}

// NopDispatcher drops events. Used when no broker is configured.
type NopDispatcher struct{}

func (NopDispatcher) MessageSent(ctx context.Context, msg *models.Message) error {
	return nil
}
