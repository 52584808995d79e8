package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/catalog"
)

// DB wraps the SQLite database connection with thread-safe access. A single
// connection plus a write lock serializes writers, so two goroutines
// discovering the same new image degrade to insert-then-ignore instead of
// racing.
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// New creates and initializes a new SQLite database connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// migrate creates the necessary tables if they don't exist.
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		img_hash TEXT PRIMARY KEY,
		img_path TEXT NOT NULL,
		img_name TEXT NOT NULL,
		format TEXT NOT NULL DEFAULT '',
		width INTEGER DEFAULT 0,
		height INTEGER DEFAULT 0,
		file_size INTEGER DEFAULT 0,
		img_kind TEXT NOT NULL DEFAULT 'normal',
		first_seen DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tag_categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		type TEXT UNIQUE,
		prompt_template TEXT,
		confidence_threshold REAL,
		priority INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL COLLATE NOCASE,
		category_id INTEGER,
		parent_id INTEGER,
		prompt_words TEXT,
		confidence_threshold REAL,
		level INTEGER DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (category_id, name),
		FOREIGN KEY (category_id) REFERENCES tag_categories (id),
		FOREIGN KEY (parent_id) REFERENCES tags (id)
	);

	CREATE TABLE IF NOT EXISTS image_tags (
		img_hash TEXT NOT NULL,
		tag_id INTEGER NOT NULL,
		confidence REAL DEFAULT 0,
		source TEXT NOT NULL DEFAULT 'auto',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (img_hash, tag_id),
		FOREIGN KEY (img_hash) REFERENCES images (img_hash) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags (id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS image_document_mapping (
		img_hash TEXT NOT NULL,
		document_path TEXT NOT NULL,
		slide_index INTEGER NOT NULL,
		shape_index INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (img_hash, document_path, slide_index, shape_index),
		FOREIGN KEY (img_hash) REFERENCES images (img_hash) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS document_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_images_kind ON images(img_kind);
	CREATE INDEX IF NOT EXISTS idx_tags_category ON tags(category_id);
	CREATE INDEX IF NOT EXISTS idx_tags_parent ON tags(parent_id);
	CREATE INDEX IF NOT EXISTS idx_image_tags_tag ON image_tags(tag_id);
	CREATE INDEX IF NOT EXISTS idx_mapping_hash ON image_document_mapping(img_hash);
	CREATE INDEX IF NOT EXISTS idx_mapping_document ON image_document_mapping(document_path);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection for use by repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// WithTx runs fn inside a transaction under the write lock. On error the
// transaction rolls back and the store is exactly as before the call.
func (db *DB) WithTx(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Lock acquires a write lock.
func (db *DB) Lock() {
	db.mu.Lock()
}

// Unlock releases the write lock.
func (db *DB) Unlock() {
	db.mu.Unlock()
}

// RLock acquires a read lock.
func (db *DB) RLock() {
	db.mu.RLock()
}

// RUnlock releases the read lock.
func (db *DB) RUnlock() {
	db.mu.RUnlock()
}

// mapConstraintError translates SQLite constraint violations into the
// catalog's typed errors, keeping the driver's message so the offending
// constraint stays visible in logs.
func mapConstraintError(err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%v: %w", err, catalog.ErrForeignKey)
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%v: %w", err, catalog.ErrConflict)
		}
	}
	return err
}
