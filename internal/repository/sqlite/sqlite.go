// Package sqlite implements the repository interfaces on top of SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, and the
// whole store is one file next to the binary (or ":memory:" in tests).
//
// CONNECTION POOL:
// The pool is pinned to a single connection. SQLite serialises writers
// anyway, PRAGMAs are per connection, and a ":memory:" database only lives
// as long as the connection that created it. The catch: never start a
// second query while a *sql.Rows from the same DB is still open, it would
// wait forever for the one connection. Every method below drains and closes
// its rows before issuing the next statement.
//
// MIGRATIONS:
// Schema changes are plain SQL files under migrations/, embedded into the
// binary and applied with goose on every New. goose records what already
// ran in its own goose_db_version table, so re-running is a no-op.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB owns the connection and hands out one store per table group.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath, configures it and brings
// the schema up to date.
//
// dbPath examples:
//   - "data/challenges.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Progress rows reference
	// both users and challenges, so we want them enforced.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	if err := migrate(conn, logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn}, nil
}

// newFromConn wraps an already configured connection. Tests use it with
// sqlmock, which has no schema to migrate.
func newFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

func migrate(conn *sql.DB, logger *slog.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: logger.With("component", "goose")})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Ping checks the connection is still usable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

func (db *DB) Challenges() *ChallengeDB {
	return &ChallengeDB{conn: db.conn}
}

func (db *DB) Progress() *ProgressDB {
	return &ProgressDB{conn: db.conn}
}

// isUniqueViolation reports whether err is SQLite rejecting a duplicate
// value in a UNIQUE column.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// gooseLogger adapts slog to goose.Logger.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
	os.Exit(1)
}
