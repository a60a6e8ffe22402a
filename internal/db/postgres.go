package db

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"gorm.io/gorm"

	"infinite-experiment/reconboard/internal/config"
)

var DB *sqlx.DB

// InitSQLX opens the read-side handle. Postgres gets its own lib/pq pool;
// sqlite reuses the GORM connection so both see the same database.
func InitSQLX(cfg config.DatabaseConfig, orm *gorm.DB) (*sqlx.DB, error) {
	if cfg.Driver != "postgres" {
		sqlDB, err := orm.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB from gorm: %w", err)
		}
		DB = sqlx.NewDb(sqlDB, "sqlite3")
		return DB, nil
	}

	var err error
	for i := 0; i < 10; i++ {
		DB, err = sqlx.Connect("postgres", cfg.DSN)
		if err == nil {
			return DB, nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("failed to connect to postgres (sqlx): %w", err)
}
