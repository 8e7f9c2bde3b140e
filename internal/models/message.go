package models

import (
	"encoding/base64"
	"time"

	"gorm.io/gorm"
)

// Message type tags. Informational only, they do not change delivery
// semantics.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

/** --------------------ENTITIES-------------------- */
// Message is a direct message between two users. The attachment columns
// are present as a unit or not at all; FileData holds the raw bytes, the
// base64 form exists only on the wire. IsRead transitions false->true
// exactly once, by the receiver.
type Message struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SenderID    uint      `gorm:"not null;index:idx_messages_pair" json:"sender"`
	ReceiverID  uint      `gorm:"not null;index:idx_messages_pair" json:"receiver"`
	Content     string    `gorm:"type:text" json:"content"`
	MessageType string    `gorm:"size:32;not null;default:text" json:"message_type"`
	FileName    string    `gorm:"size:255" json:"file_name,omitempty"`
	FileType    string    `gorm:"size:100" json:"file_type,omitempty"`
	FileSize    int64     `json:"file_size,omitempty"`
	FileData    []byte    `json:"-"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
	IsRead      bool      `gorm:"not null;default:false" json:"is_read"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	if m.MessageType == "" {
		m.MessageType = MessageTypeText
	}
	return nil
}

// HasAttachment reports whether the message carries a file.
func (m *Message) HasAttachment() bool {
	return len(m.FileData) > 0
}

/** -------------------- DTOs -------------------- */
// MessagePayload is the message object sent to clients, both in
// chat_message events and in history responses. Attachment bytes travel
// base64-encoded.
type MessagePayload struct {
	ID          uint      `json:"id"`
	Content     string    `json:"content"`
	Sender      uint      `json:"sender"`
	Receiver    uint      `json:"receiver"`
	Timestamp   time.Time `json:"timestamp"`
	IsRead      bool      `json:"is_read"`
	MessageType string    `json:"message_type"`
	FileName    string    `json:"file_name,omitempty"`
	FileType    string    `json:"file_type,omitempty"`
	FileSize    int64     `json:"file_size,omitempty"`
	FileBase64  string    `json:"file_base64,omitempty"`
}

// NewMessagePayload converts a persisted message into its wire shape.
func NewMessagePayload(m *Message) MessagePayload {
	p := MessagePayload{
		ID:          m.ID,
		Content:     m.Content,
		Sender:      m.SenderID,
		Receiver:    m.ReceiverID,
		Timestamp:   m.Timestamp,
		IsRead:      m.IsRead,
		MessageType: m.MessageType,
		FileName:    m.FileName,
		FileType:    m.FileType,
		FileSize:    m.FileSize,
	}
	if m.HasAttachment() {
		p.FileBase64 = base64.StdEncoding.EncodeToString(m.FileData)
	}
	return p
}

// Response
type ConversationResponse struct {
	Messages []MessagePayload `json:"messages"`
	Total    int              `json:"total"`
}

type SenderUnreadCount struct {
	SenderID uint  `json:"senderId"`
	Count    int64 `json:"count"`
}

type UnreadCountResponse struct {
	Total    int64               `json:"total"`
	BySender []SenderUnreadCount `json:"bySender"`
}
