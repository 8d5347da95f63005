package database

import (
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/repositories"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database and migrates the schema.
// The memory driver needs no connection and returns an in-memory store.
func Open(cfg *config.Config, log zerolog.Logger) (repositories.Store, func() error, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return repositories.NewMemoryStore(), func() error { return nil }, nil
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}

	gormLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		gormLevel = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(log, gormLevel),
		TranslateError: true,
		// Timestamps are stored in UTC so range queries compare correctly on SQLite.
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if cfg.DBDriver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	store := repositories.NewGORMStore(db)
	if err := store.AutoMigrate(); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database connected and migrated")
	return store, sqlDB.Close, nil
}
