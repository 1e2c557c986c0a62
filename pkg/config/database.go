package config

import (
	"time"

	"niftacore/internal/ledger"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB opens the postgres connection, configures the pool and makes sure
// the ledger tables exist.
func InitDB(cfg *AppConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db

	if cfg.RunMigrations {
		if err := ExecuteMigrations(cfg.MigrationsDir); err != nil {
			return nil, err
		}
		return db, nil
	}

	// Auto migrate all models
	if err := ledger.NewGormStore(db).AutoMigrate(); err != nil {
		return nil, err
	}
	logrus.Info("Database schema auto-migrated")
	return db, nil
}
