package db

import (
	"context"
	"embed"
	"fmt"

	"rental-registry/internal/models"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema up to date. PostgreSQL runs the embedded goose migrations,
// which also install the exclusion constraint backing the per-node overlap check;
// SQLite uses gorm's AutoMigrate.
func Migrate(ctx context.Context, database *gorm.DB) error {
	if !IsPostgres(database) {
		if err := database.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
