package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"ms-events/internal/logger"
)

//go:embed sql/*.sql
var files embed.FS

// Runner applies the embedded postgres migrations. It opens its own
// connection from the DSN so closing the migrator never touches the app pool.
type Runner struct {
	dsn    string
	logger *logger.Logger
}

func NewRunner(dsn string, log *logger.Logger) *Runner {
	return &Runner{dsn: dsn, logger: log}
}

func (r *Runner) newMigrator() (*migrate.Migrate, error) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, r.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// Up runs all pending migrations. A dirty version left by a crashed run is
// forced clean first; the migrations are idempotent.
func (r *Runner) Up() (err error) {
	m, err := r.newMigrator()
	if err != nil {
		return err
	}
	defer func() {
		sourceErr, databaseErr := m.Close()
		if err == nil && sourceErr != nil {
			err = fmt.Errorf("error closing migrator source: %w", sourceErr)
		}
		if err == nil && databaseErr != nil {
			err = fmt.Errorf("error closing migrator database: %w", databaseErr)
		}
	}()

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", verr)
	}
	if dirty {
		r.logger.Warn("MIGRATE", fmt.Sprintf("Detected dirty migration at version %d, forcing", version))
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to fix dirty migration: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if version, _, verr = m.Version(); verr == nil {
		r.logger.Info("MIGRATE", fmt.Sprintf("Current schema version: %d", version))
	}
	return nil
}
