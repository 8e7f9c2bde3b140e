package database

import (
	"messaging-service/internal/models"

	"gorm.io/gorm"
)

// Migrate creates the message table plus, for dev and test environments,
// the user and follow tables this service otherwise only reads.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Message{},
	)
}
