package service

import (
	"testing"

	"messaging-service/internal/database"
	"messaging-service/internal/models"
	"messaging-service/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id uint, username, privacy string) {
	t.Helper()
	user := models.User{ID: id, Username: username, Email: username + "@example.com", MessagePrivacy: privacy}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to seed user %d: %v", id, err)
	}
}

func seedFollow(t *testing.T, db *gorm.DB, follower, target uint) {
	t.Helper()
	if err := db.Create(&models.Follow{FollowerID: follower, TargetID: target}).Error; err != nil {
		t.Fatalf("Failed to seed follow %d->%d: %v", follower, target, err)
	}
}

func newServices(db *gorm.DB) (*MessageService, *PrivacyService) {
	privacy := NewPrivacyService(repository.NewUserRepository(db))
	messages := NewMessageService(repository.NewMessageRepository(db), privacy)
	return messages, privacy
}
