package database

import (
	"database/sql"
	"fmt"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"steam-tracker-bot/internal/types"
)

// Store owns the sqlite handle. It is constructed once at startup and
// passed to every component that needs persistence.
type Store struct {
	db *sql.DB
}

// Open connects to the sqlite database at dbPath and creates the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// sqlite has a single writer anyway; one connection also keeps
	// multi-statement transactions on the same handle.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		chat_id INTEGER PRIMARY KEY,
		steam_id TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS user_items (
		chat_id INTEGER NOT NULL,
		item_id INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		current_price REAL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (chat_id, item_id)
	);
	CREATE TABLE IF NOT EXISTS tracking (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		item_name TEXT NOT NULL,
		start_price REAL NOT NULL,
		last_price REAL NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (chat_id, item_name)
	);
	CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL PRIMARY KEY,
		metric_value REAL NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	log.Debug("database initialized")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// wrapStorage tags a low-level database error with the STORAGE_ERROR kind
// while keeping the driver message.
func wrapStorage(err error, op string) error {
	return fmt.Errorf("%s: %v: %w", op, err, types.ErrStorage)
}
