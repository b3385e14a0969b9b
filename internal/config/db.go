package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"sitegen-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteScheme = "sqlite://"

var DB *gorm.DB

// ConnectDB opens Postgres, or a local SQLite file when dsn starts with sqlite://.
func ConnectDB(dsn string, logLevel string) error {
	dialector, local := dialectorFor(dsn)

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(logLevel)),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if local {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Println("✅ Database connected successfully")
	return nil
}

func dialectorFor(dsn string) (gorm.Dialector, bool) {
	if strings.HasPrefix(dsn, sqliteScheme) {
		path := strings.TrimPrefix(dsn, sqliteScheme)
		if path == "" {
			path = "sitegen.db"
		}
		return sqlite.Open(path), true
	}
	return postgres.Open(dsn), false
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func MigrateAllModels(run bool) error {
	if !run {
		log.Println("skipping migration")
		return nil
	}
	if DB.Migrator().HasIndex(&models.User{}, models.LegacyEmailIndex) {
		if err := DB.Migrator().DropIndex(&models.User{}, models.LegacyEmailIndex); err != nil {
			return fmt.Errorf("failed to drop %s: %w", models.LegacyEmailIndex, err)
		}
	}
	if err := DB.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Generation{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

func CloseDB() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
