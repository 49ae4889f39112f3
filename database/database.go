package database

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"travel-buddy-server/config"
	"travel-buddy-server/models"
)

// Initialize sets up the database connection and runs migrations
func Initialize(cfg config.DatabaseConfig, log *zap.SugaredLogger) (*gorm.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("DB_URL is required. Set DB_URL to a valid Postgres URL")
	}

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying SQL database")
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}
	log.Infow("Connected to database", "max_open_conns", cfg.MaxOpenConns)

	if cfg.AutoMigrate {
		if err := RunMigrations(db); err != nil {
			return nil, errors.Wrap(err, "failed to run migrations")
		}
		log.Infow("Database migrations completed")
	}

	return db, nil
}

// RunMigrations creates or updates database tables
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.TravelHistory{},
		&models.Notification{},
		&models.JobLease{},
	)
}

// Ping checks the connection, bounded by ctx
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying SQL database")
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying SQL database")
	}
	return sqlDB.Close()
}

func newGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
}
