package database

import (
	"embed"
	"errors"
	"fmt"

	"reviewflow/internal/logger"
	"reviewflow/internal/models"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate применяет схему: SQL-миграции для postgres, AutoMigrate для остальных драйверов.
func Migrate(db *gorm.DB, driver string) error {
	if driver != "postgres" {
		if err := db.AutoMigrate(models.AllModels()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("Schema migrated", "driver", driver, "mode", "automigrate")
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	target, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", target)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No migrations to apply")
			return nil
		}
		return err
	}

	version, _, _ := m.Version()
	logger.Info("All migrations applied", "version", version)
	return nil
}
