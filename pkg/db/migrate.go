package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/Hariprasath006/Campus-Resource-Management/pkg/config"
)

// MigrationStatus is the schema version after a migration run.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Migrate applies all pending up migrations found at migrationsPath
// (e.g. "file://migrations"). Uses DIRECT_URL when set.
func Migrate(migrationsPath string, cfg config.Config) error {
	_, err := MigrateSteps(migrationsPath, cfg, 0)
	return err
}

// MigrateSteps moves the schema n migrations (negative rolls back). n == 0
// applies everything pending.
func MigrateSteps(migrationsPath string, cfg config.Config, n int) (MigrationStatus, error) {
	m, err := migrate.New(migrationsPath, migrationConnString(cfg))
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("open migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if n == 0 {
		err = m.Up()
	} else {
		err = m.Steps(n)
	}
	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed, err = false, nil
	}
	if err != nil {
		return MigrationStatus{}, err
	}

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{Changed: changed}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("read schema version: %w", err)
	}
	return MigrationStatus{Version: v, Dirty: dirty, Changed: changed}, nil
}
