// Package storage provides the SQLite-backed local store for ttracker:
// the ordered time entry log plus task and project metadata.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	domainErrors "github.com/jsuresh/ttracker/internal/domain/errors"
)

// Connection manages the SQLite database connection.
// The store assumes a single writer; concurrent processes sharing one
// database file are unsupported.
type Connection struct {
	db       *sql.DB
	dbPath   string
	mu       sync.RWMutex
	isClosed bool
}

// NewConnection creates a new SQLite connection.
// If dbPath is empty, it uses the default location: ~/.ttracker/ttracker.db
func NewConnection(dbPath string) (*Connection, error) {
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, ".ttracker", "ttracker.db")
	}

	conn := &Connection{
		dbPath: dbPath,
	}

	return conn, nil
}

// Open opens the database connection and creates the necessary directory structure.
func (c *Connection) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return fmt.Errorf("database already open")
	}

	// Ensure the directory exists
	dir := filepath.Dir(c.dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create database directory: %w", err)
	}

	// Open the database
	db, err := sql.Open("sqlite3", c.dbPath)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(1) // SQLite works best with a single connection
	db.SetMaxIdleConns(1)

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("could not ping database: %w", err)
	}

	c.db = db
	c.isClosed = false

	// Run migrations
	if err := applyMigrations(db); err != nil {
		db.Close()
		c.db = nil
		return fmt.Errorf("could not run migrations: %w", err)
	}

	// Refuse to serve a store whose log violates its invariants
	if err := verifyIntegrity(db); err != nil {
		db.Close()
		c.db = nil
		return err
	}

	return nil
}

// Close closes the database connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("could not close database: %w", err)
	}

	c.db = nil
	c.isClosed = true
	return nil
}

// DB returns the underlying database connection.
// Returns an error if the connection is not open.
func (c *Connection) DB() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.db == nil {
		return nil, fmt.Errorf("database not open")
	}

	if c.isClosed {
		return nil, fmt.Errorf("database is closed")
	}

	return c.db, nil
}

// Path returns the database file path.
func (c *Connection) Path() string {
	return c.dbPath
}

// Ping tests the database connection.
func (c *Connection) Ping() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.db == nil || c.isClosed {
		return fmt.Errorf("database not open")
	}

	return c.db.Ping()
}

// verifyIntegrity checks the persisted log against the invariants every
// command relies on. A violated invariant means the store was corrupted
// (most likely by concurrent writers) and is never auto-repaired, since a
// repair would have to guess which open entry the user meant to keep.
func verifyIntegrity(db *sql.DB) error {
	var open int
	if err := db.QueryRow("SELECT COUNT(*) FROM entries WHERE end_time IS NULL").Scan(&open); err != nil {
		return fmt.Errorf("could not check open entries: %w", err)
	}
	if open > 1 {
		return domainErrors.NewError(domainErrors.CodeStore,
			fmt.Sprintf("%d entries are open, expected at most one", open),
			domainErrors.ErrStoreCorrupt)
	}

	var badSync int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM entries
		WHERE (sync_state = 'synced' AND (remote_id IS NULL OR remote_id = ''))
		   OR (end_time IS NULL AND remote_id IS NOT NULL AND remote_id != '')
	`).Scan(&badSync)
	if err != nil {
		return fmt.Errorf("could not check sync invariants: %w", err)
	}
	if badSync > 0 {
		return domainErrors.NewError(domainErrors.CodeStore,
			fmt.Sprintf("%d entries violate the sync-state/remote-id invariant", badSync),
			domainErrors.ErrStoreCorrupt)
	}

	return nil
}
