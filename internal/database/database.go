package database

import (
	"caseintake/internal/config"
	"caseintake/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection.
var DB *gorm.DB

// InitDB initializes the database connection.
func InitDB(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}
	return nil
}

// Migrate creates or updates the tables the gateway owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Draft{})
}
