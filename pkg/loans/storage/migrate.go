package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrations only ever add tables, columns and indexes so that a deployment
// can upgrade in place without losing history.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateUp applies every pending migration to db. The driver name selects
// the golang-migrate database driver matching the SQL driver in use.
func migrateUp(db *sql.DB, driver string) (uint, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	var target database.Driver
	switch driver {
	case DriverMattn:
		target, err = migratesqlite3.WithInstance(db, &migratesqlite3.Config{})
	case DriverModernc:
		target, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unsupported sqlite driver %q", driver)
	}
	if err != nil {
		source.Close()
		return 0, fmt.Errorf("failed to prepare migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, target)
	if err != nil {
		source.Close()
		return 0, fmt.Errorf("failed to initialize migrations: %w", err)
	}
	// m.Close would also close db, which the storage still owns.
	defer source.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}

	return version, nil
}
