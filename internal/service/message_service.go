package service

import (
	"context"
	"errors"
	"log/slog"

	"messaging-service/internal/models"
	"messaging-service/internal/repository"
)

var ErrInvalidAttachment = errors.New("attachment fields must be present as a unit")

// CreateMessageInput carries a decoded send request. FileData holds raw
// bytes; base64 decoding happens at the gateway boundary, never here.
type CreateMessageInput struct {
	Content     string
	MessageType string
	FileName    string
	FileType    string
	FileSize    int64
	FileData    []byte
}

type MessageService struct {
	messages *repository.MessageRepository
	privacy  *PrivacyService
}

func NewMessageService(messages *repository.MessageRepository, privacy *PrivacyService) *MessageService {
	return &MessageService{messages: messages, privacy: privacy}
}

// Create validates and persists a single message. Privacy is re-checked
// here even though the gateway already checked at connect time; settings
// and follow edges may have changed since.
func (s *MessageService) Create(ctx context.Context, senderID, receiverID uint, in *CreateMessageInput) (*models.Message, error) {
	if senderID == receiverID {
		return nil, ErrInvalidPairing
	}
	if err := validateAttachment(in); err != nil {
		return nil, err
	}

	allowed, err := s.privacy.CanMessage(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		slog.Warn("privacy violation blocked",
			"sender", senderID, "receiver", receiverID)
		return nil, ErrPrivacyViolation
	}

	msg := &models.Message{
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Content:     in.Content,
		MessageType: in.MessageType,
		FileName:    in.FileName,
		FileType:    in.FileType,
		FileSize:    in.FileSize,
		FileData:    in.FileData,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetConversation returns the full ordered conversation between viewer and
// other. As a documented side effect it first marks the viewer's unread
// inbound messages in that conversation as read, so the returned rows and
// the sender's read receipts reflect the view promptly.
func (s *MessageService) GetConversation(ctx context.Context, viewerID, otherID uint) ([]models.Message, error) {
	if viewerID == otherID {
		return nil, ErrInvalidPairing
	}
	allowed, err := s.privacy.CanMessage(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		// Distinct from an empty conversation: the caller is not allowed
		// to know whether messages exist.
		return nil, ErrPrivacyViolation
	}

	if _, err := s.messages.MarkConversationRead(ctx, viewerID, otherID); err != nil {
		return nil, err
	}
	return s.messages.ListConversation(ctx, viewerID, otherID)
}

// MarkRead is the explicit receipt path: best-effort, idempotent, ids not
// belonging to the reader's unread inbound set are ignored.
func (s *MessageService) MarkRead(ctx context.Context, readerID uint, ids []uint) (int64, error) {
	return s.messages.MarkRead(ctx, readerID, ids)
}

func (s *MessageService) UnreadCounts(ctx context.Context, userID uint) (*models.UnreadCountResponse, error) {
	total, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	bySender, err := s.messages.CountUnreadBySender(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UnreadCountResponse{Total: total, BySender: bySender}, nil
}

func validateAttachment(in *CreateMessageInput) error {
	if len(in.FileData) == 0 {
		if in.FileName != "" || in.FileType != "" || in.FileSize != 0 {
			return ErrInvalidAttachment
		}
		return nil
	}
	if in.FileName == "" {
		return ErrInvalidAttachment
	}
	if in.FileSize == 0 {
		in.FileSize = int64(len(in.FileData))
	}
	return nil
}
