// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// The driver is modernc.org/sqlite (pure Go, no CGo). The schema is managed by
// golang-migrate from the versioned .sql files embedded under migrations/.
// Every new column is added with a NOT NULL DEFAULT so rows written before the
// column existed still scan cleanly.
//
// The pool is capped at a single connection. SQLite only allows one writer at a
// time anyway, and with one connection every transaction in this package is
// serialised against every other statement, which the roster last-leader check
// relies on. It also keeps ":memory:" databases coherent in tests (each new
// connection to ":memory:" would otherwise be a separate, empty database).
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a sql.DB connection pool. The per-entity repositories are reached
// through Users(), Sessions(), Staff(), Innovations(), Teams() and Competitions().
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and applies pending migrations.
//
// dbPath examples:
//   - "data/innovations.db"  → file-based database (persistent)
//   - ":memory:"             → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.MigrateUp(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Connect opens the database without touching the schema. The migrate
// command uses it so it can move the schema in either direction.
func Connect(dbPath string) (*DB, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &DB{conn: conn}, nil
}

// Open opens the connection and applies pragmas without touching the schema.
func Open(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// journal_mode is not supported for in-memory databases; ignore the result.
	_, _ = conn.Exec("PRAGMA journal_mode=WAL")

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	return conn, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	// m.Close is not called: it would close db.conn along with the driver.
	return m, nil
}

// MigrateUp applies every pending migration.
func (db *DB) MigrateUp() error {
	m, err := db.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the given number of migrations.
func (db *DB) MigrateDown(steps int) error {
	if steps <= 0 {
		return nil
	}
	m, err := db.migrator()
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back %d migrations: %w", steps, err)
	}
	return nil
}

// SchemaVersion returns the current migration version and whether the last
// migration left the schema dirty.
func (db *DB) SchemaVersion() (uint, bool, error) {
	m, err := db.migrator()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// withTx runs fn inside a transaction, committing on success.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// isUniqueViolation reports whether err is a SQLite UNIQUE / PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
