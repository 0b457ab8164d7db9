package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// MigrateUp applies every pending migration. A database that is already
// current is left untouched.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	// m is not closed: closing it would close db, which the caller owns.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// CheckStatus returns nil when the history schema is at the version this
// binary was built with, and a descriptive error otherwise.
func CheckStatus(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("history database has no schema version (needs migration)")
		}
		return fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("history database is dirty at version %d (a previous migration failed)", version)
	}

	latest, err := LatestVersion()
	if err != nil {
		return err
	}

	switch {
	case version < latest:
		return fmt.Errorf("history database is at version %d but latest is %d", version, latest)
	case version > latest:
		return fmt.Errorf("history database version %d is newer than this binary (%d)", version, latest)
	}
	return nil
}

// LatestVersion returns the highest migration version embedded in the binary.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("reading migration files: %w", err)
	}
	defer src.Close()

	return lastVersion(src)
}

func lastVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("finding first migration: %w", err)
	}
	for {
		next, err := src.Next(version)
		if err != nil {
			// Next reports the end of the sequence as an error.
			return version, nil
		}
		version = next
	}
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("creating migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, nil
}
