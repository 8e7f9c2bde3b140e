package service

import (
	"context"
	"errors"

	"messaging-service/internal/models"
	"messaging-service/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidPairing   = errors.New("sender and receiver must be distinct, existing users")
	ErrPrivacyViolation = errors.New("receiver's privacy settings do not allow this sender")
)

// PrivacyService is the single policy evaluator for "may A message B".
// Every call site delegates here so connect-time and send-time checks
// cannot drift apart.
type PrivacyService struct {
	users *repository.UserRepository
}

func NewPrivacyService(users *repository.UserRepository) *PrivacyService {
	return &PrivacyService{users: users}
}

// CanMessage reports whether sender may message receiver. Public receivers
// accept anyone; private receivers require a follow edge in either
// direction. Self-pairing is rejected by callers, not here.
func (s *PrivacyService) CanMessage(ctx context.Context, senderID, receiverID uint) (bool, error) {
	receiver, err := s.users.FindByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}

	if receiver.MessagePrivacy == models.PrivacyPublic {
		return true, nil
	}
	return s.users.FollowsEitherDirection(ctx, senderID, receiverID)
}
