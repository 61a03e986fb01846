package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// schemaSQL is the single source of truth for the database schema.
// It is embedded at compile time from schema.sql.
//
//go:embed schema.sql
var schemaSQL string

// DB wraps a SQLite database connection with write serialization
type DB struct {
	conn    *sql.DB
	writeMu sync.Mutex // Serializes all write operations to prevent transaction conflicts
}

// Connect opens a SQLite database with WAL mode enabled
func Connect(dbPath string) (*DB, error) {
	// Open with WAL mode and foreign keys enabled
	dsn := dbPath + "?_journal=WAL&_fk=1&_busy_timeout=5000"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time: a single connection plus the
	// write mutex keeps the batch pipeline and any async cleanup from fighting
	// over transactions.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 10000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set %s: %v", pragma, err)
		}
	}

	log.Printf("Connected to SQLite database: %s", dbPath)
	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// LockWrite acquires the write mutex. Must be paired with UnlockWrite.
func (db *DB) LockWrite() {
	db.writeMu.Lock()
}

// UnlockWrite releases the write mutex.
func (db *DB) UnlockWrite() {
	db.writeMu.Unlock()
}

// EnsureSchema creates tables if they don't exist.
// Uses the embedded schema.sql file as the single source of truth.
func (db *DB) EnsureSchema(ctx context.Context) error {
	db.LockWrite()
	defer db.UnlockWrite()

	_, err := db.conn.ExecContext(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Println("Database schema ensured (from embedded schema.sql)")
	return nil
}

// TruncateForReload empties every staging and warehouse table ahead of a full
// reload. Children go before parents; realtime tables are left alone, they
// belong to the collector.
func (db *DB) TruncateForReload(ctx context.Context) error {
	db.LockWrite()
	defer db.UnlockWrite()

	tables := []string{
		"stg_openflights_airports",
		"stg_openflights_routes",
		"stg_openflights_airlines",
		"stg_gtfs_stops",
		"stg_gtfs_routes",
		"stg_gtfs_trips",
		"stg_gtfs_stop_times",
		"stg_gtfs_calendar_dates",

		"dw_fact_scheduled_segments",
		"dw_bridge_service_date",
		"dw_fact_flight_routes",
		"dw_dim_route_line",
		"dw_dim_airport",
		"dw_dim_airline",
		"dw_dim_stop",
		"dw_dim_date",
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	// Reset the autoincrement counters so reloads produce identical keys
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sqlite_sequence WHERE name IN ('dw_fact_flight_routes', 'dw_fact_scheduled_segments')",
	); err != nil {
		return fmt.Errorf("failed to reset sequences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Println("Staging and warehouse tables truncated for reload")
	return nil
}

// TableCount returns the row count of a table. Used by the post-run checks.
func (db *DB) TableCount(ctx context.Context, table string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}
