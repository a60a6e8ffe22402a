package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"infinite-experiment/reconboard/internal/config"
	"infinite-experiment/reconboard/internal/logging"
	gormModels "infinite-experiment/reconboard/internal/models/gorm"
)

var PgDB *gorm.DB

// InitORM opens the run ledger database with the configured driver and
// migrates its tables.
func InitORM(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	PgDB = db
	logging.Info("Connected to run ledger via GORM", "driver", cfg.Driver)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&gormModels.ReconciliationRun{}); err != nil {
		return fmt.Errorf("failed to migrate run ledger: %w", err)
	}
	return nil
}
