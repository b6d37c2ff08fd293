package config

import (
	"fmt"
	"time"

	"category-import-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB connects to PostgreSQL, retrying while the server comes up, and
// migrates the schema.
func InitDB(opts DatabaseOptions) (*gorm.DB, error) {
	attempts := opts.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(postgres.Open(opts.DSN()), &gorm.Config{})
		if err == nil {
			break
		}
		zap.L().Warn("DB connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		time.Sleep(time.Duration(i+1) * 2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", attempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(
		&models.Category{},
		&models.CategoryImport{},
		&models.ImportBatch{},
	); err != nil {
		return nil, fmt.Errorf("AutoMigrate failed: %w", err)
	}

	zap.L().Info("Connected to PostgreSQL", zap.String("host", opts.Host), zap.String("db", opts.Name))
	return db, nil
}
