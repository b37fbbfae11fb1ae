package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/josecalvo/rubi/backend/internal/config"
	"github.com/josecalvo/rubi/backend/internal/logger"
	chatmodel "github.com/josecalvo/rubi/backend/internal/model/chat"
	gamemodel "github.com/josecalvo/rubi/backend/internal/model/gamification"
	profilemodel "github.com/josecalvo/rubi/backend/internal/model/profile"
)

// Open connects to Postgres and migrates the schema.
func Open(cfg config.PostgresConfig, log *logger.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := AutoMigrate(gdb); err != nil {
		return nil, err
	}

	log.Info("postgres ready", "host", cfg.Host, "database", cfg.Name)
	return gdb, nil
}

// AutoMigrate creates or updates every table the service owns. Exported so
// tests can run the same migration against an in-memory database.
func AutoMigrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&chatmodel.Conversation{},
		&chatmodel.Message{},
		&profilemodel.Preferences{},
		&gamemodel.Achievement{},
		&gamemodel.UserAchievement{},
		&gamemodel.UserStats{},
		&gamemodel.DailyChallenge{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
