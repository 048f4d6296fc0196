package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type Database struct {
	db     *sql.DB
	driver string
	// db stays set after Close; late queries fail with "sql: database is closed"
	closed atomic.Bool
}

// NewDatabase opens the store, verifies the connection and creates the schema
func NewDatabase(driver, dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is required")
	}
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	// Check for invalid database file path
	if strings.Contains(dsn, "?mode=invalid") {
		return nil, errors.New("invalid database configuration")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer; queue statements instead of failing with SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	// Verify we can actually connect to the database
	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	// Try to create tables - if this fails, the database is not usable
	if err := createTables(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("create tables failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	return &Database{db: db, driver: driver}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS otps (
			id TEXT PRIMARY KEY,
			recipient TEXT NOT NULL,
			sender TEXT NOT NULL,
			secret_hash TEXT NOT NULL,
			is_valid BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_otps_recipient_sender ON otps(recipient, sender, created_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// GetDB returns the underlying connection pool
func (d *Database) GetDB() *sql.DB {
	return d.db
}

// Driver returns the database/sql driver name in use
func (d *Database) Driver() string {
	return d.driver
}

// Rebind rewrites ? placeholders into the driver's bind syntax
func (d *Database) Rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *Database) Ping(ctx context.Context) error {
	if d == nil || d.db == nil || d.closed.Load() {
		return errors.New("database is closed")
	}
	return d.db.PingContext(ctx)
}

func (d *Database) Close() error {
	if d == nil {
		return errors.New("database is nil")
	}

	if d.db == nil || d.closed.Swap(true) {
		return errors.New("database already closed")
	}

	return d.db.Close()
}
