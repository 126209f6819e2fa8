package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"

	"catalog-api/migrations"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// MigrationSource picks the migration files: a directory on disk when dir is set,
// the migrations embedded in the binary otherwise.
func MigrationSource(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

func newProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// RunMigrations executes all pending database migrations
func RunMigrations(ctx context.Context, db *sql.DB, fsys fs.FS, logger *zap.Logger) error {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}

	logger.Info("Checking for pending migrations...")

	results, err := provider.Up(ctx)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, result := range results {
		logger.Info("Applied migration",
			zap.Int64("version", result.Source.Version),
			zap.String("file", result.Source.Path),
			zap.Duration("duration", result.Duration),
		)
	}

	logger.Info("Migrations completed successfully", zap.Int("applied", len(results)))
	return nil
}

// RollbackMigration reverts the most recently applied migration
func RollbackMigration(ctx context.Context, db *sql.DB, fsys fs.FS, logger *zap.Logger) error {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}

	result, err := provider.Down(ctx)
	if err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	logger.Info("Rolled back migration",
		zap.Int64("version", result.Source.Version),
		zap.String("file", result.Source.Path),
	)
	return nil
}

// MigrationStatus is one line of the migration status report
type MigrationStatus struct {
	Version int64
	File    string
	Applied bool
}

// GetMigrationStatus returns the current migration status
func GetMigrationStatus(ctx context.Context, db *sql.DB, fsys fs.FS) ([]MigrationStatus, error) {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return nil, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	report := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		report = append(report, MigrationStatus{
			Version: s.Source.Version,
			File:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}

	return report, nil
}
