package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // File source driver
)

// RunMigrations brings the schema under databaseURL up to the newest version
// in migrationsPath. The path may be bare or a file:// URL. A schema left
// dirty by an earlier failed run is reported, not repaired.
func RunMigrations(logger *slog.Logger, databaseURL string, migrationsPath string) error {
	if migrationsPath == "" {
		return errors.New("migrations path cannot be empty")
	}
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}

	sourceURL := migrationsPath
	if !strings.HasPrefix(sourceURL, "file://") {
		sourceURL = "file://" + sourceURL
	}

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	version, dirty, versionErr := m.Version()
	sourceErr, dbErr := m.Close()

	switch {
	case upErr != nil && !errors.Is(upErr, migrate.ErrNoChange):
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	case versionErr != nil && !errors.Is(versionErr, migrate.ErrNilVersion):
		return fmt.Errorf("failed to read schema version: %w", versionErr)
	case dirty:
		return fmt.Errorf("schema is dirty at version %d", version)
	case sourceErr != nil:
		return fmt.Errorf("migration source error: %w", sourceErr)
	case dbErr != nil:
		return fmt.Errorf("migration database error: %w", dbErr)
	}

	logger.Info("Schema is up to date", "version", version, "changed", upErr == nil)
	return nil
}
