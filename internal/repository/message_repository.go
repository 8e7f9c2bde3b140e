package repository

import (
	"context"

	"messaging-service/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db}
}

// Create persists a message as a single row. The store's auto-increment
// key defines ordering between messages with equal timestamps.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListConversation returns every message between the two users, ascending
// by (timestamp, id).
func (r *MessageRepository) ListConversation(ctx context.Context, userA, userB uint) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Order("timestamp, id").
		Find(&msgs).Error
	return msgs, err
}

// MarkRead flips is_read for the ids that are unread inbound messages of
// reader. Ids that do not match are silently ignored, so re-marking is a
// no-op and the call is idempotent. Returns the number of rows that
// transitioned.
func (r *MessageRepository) MarkRead(ctx context.Context, reader uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id IN ? AND receiver_id = ? AND is_read = ?", ids, reader, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// MarkConversationRead flips is_read for all of reader's unread inbound
// messages from other. Used by the history fetch side effect.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, reader, other uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", reader, other, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *MessageRepository) CountUnread(ctx context.Context, reader uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", reader, false).
		Count(&count).Error
	return count, err
}

func (r *MessageRepository) CountUnreadBySender(ctx context.Context, reader uint) ([]models.SenderUnreadCount, error) {
	var counts []models.SenderUnreadCount
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Select("sender_id AS sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND is_read = ?", reader, false).
		Group("sender_id").
		Order("sender_id").
		Scan(&counts).Error
	return counts, err
}
