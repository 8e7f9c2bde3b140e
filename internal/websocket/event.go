package websocket

import (
	"encoding/json"

	"messaging-service/internal/models"
)

// Client -> server actions.
const (
	ActionSendMessage = "send_message"
	ActionMarkRead    = "mark_read"
)

// Server -> client event types.
const (
	EventChatMessage = "chat_message"
	EventReadReceipt = "read_receipt"
)

// Application close codes. 4001 distinguishes a privacy rejection from a
// plain auth failure so clients can react differently.
const (
	ClosePrivacyViolation   = 4001
	CloseInvalidCounterpart = 4002
)

// ClientEvent is the single inbound frame shape; Action selects which
// fields are meaningful.
type ClientEvent struct {
	Action      string `json:"action"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	FileData    string `json:"file_data,omitempty"` // base64
	FileName    string `json:"file_name,omitempty"`
	FileType    string `json:"file_type,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	MessageIDs  []uint `json:"message_ids,omitempty"`
}

type ChatMessageEvent struct {
	Type    string                `json:"type"`
	Message models.MessagePayload `json:"message"`
}

type ReadReceiptEvent struct {
	Type       string `json:"type"`
	MessageIDs []uint `json:"message_ids"`
	ReaderID   uint   `json:"reader_id"`
}

// Envelope is what travels through the registry (and through Redis when
// bridging instances). When Participants is set, delivery is restricted to
// those user IDs even if the room somehow holds other sockets.
type Envelope struct {
	Room         string          `json:"room"`
	Participants []uint          `json:"participants,omitempty"`
	Data         json.RawMessage `json:"data"`
}

func (e *Envelope) allows(userID uint) bool {
	if len(e.Participants) == 0 {
		return true
	}
	for _, id := range e.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
