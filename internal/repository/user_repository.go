package repository

import (
	"context"

	"messaging-service/internal/models"

	"gorm.io/gorm"
)

// UserRepository reads users and follow edges. Both tables are owned by
// other subsystems; nothing here writes to them.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FollowsEitherDirection reports whether a follow edge exists from a to b
// or from b to a. Private-mode gating deliberately accepts either
// direction, not only mutual follows.
func (r *UserRepository) FollowsEitherDirection(ctx context.Context, a, b uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("(follower_id = ? AND target_id = ?) OR (follower_id = ? AND target_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
