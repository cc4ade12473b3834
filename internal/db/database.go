package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"platewatch-go/config"
	"platewatch-go/internal/core/models"

	"github.com/glebarez/sqlite" // Pure Go SQLite Treiber
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize öffnet die SQLite-Datenbank und führt die Migrationen aus
func Initialize(cfg *config.Config) (*gorm.DB, error) {
	// Sicherstellen, dass das Verzeichnis für die Datenbankdatei existiert
	if cfg.DB.File != "" {
		dbDir := filepath.Dir(cfg.DB.File)
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			log.Errorf("Failed to create database directory '%s': %v", dbDir, err)
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Konfiguration des GORM-Loggers
	gormLogger := logger.New(
		log.StandardLogger(), // Verwende den konfigurierten logrus-Logger
		logger.Config{
			SlowThreshold:             time.Second * 2, // SQL-Abfragen langsamer als 2 Sekunden werden geloggt
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Infof("Connecting to database: %s", cfg.DB.File)

	// Fremdschlüssel-Prüfung in SQLite muss pro Verbindung aktiviert werden
	dsn := cfg.DB.File + "?_pragma=foreign_keys(1)"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Errorf("Failed to connect to database: %v", err)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Verbindungs-Pool-Einstellungen
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Database connection established successfully")

	if err := Migrate(gormDB); err != nil {
		return nil, err
	}

	return gormDB, nil
}

// Migrate führt die Auto-Migrationen für alle Entitäten aus
func Migrate(gormDB *gorm.DB) error {
	log.Info("Running database migrations...")
	if err := gormDB.AutoMigrate(
		&models.Site{},
		&models.Camera{},
		&models.Event{},
	); err != nil {
		log.Errorf("Database migration failed: %v", err)
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Info("Database migrations completed successfully")
	return nil
}
