package db

import (
	"fmt"

	"chamberhub/campaigns/internal/logging"
	models "chamberhub/campaigns/internal/models/gorm"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var PgDB *gorm.DB

func InitPostgresORM(dsn string, appEnv string) (*gorm.DB, error) {
	level := logger.Warn
	if appEnv == "production" {
		level = logger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	PgDB = db
	logging.Info("Connected to Postgres via GORM")
	return db, nil
}

// AutoMigrate creates the tables for local development. Production schemas
// are managed by the migration tooling.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
