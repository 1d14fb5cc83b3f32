package storage

import (
	"database/sql"
	"fmt"
)

// applyMigrations applies all database migrations in order.
func applyMigrations(db *sql.DB) error {
	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("could not enable foreign keys: %w", err)
	}

	// Create migrations table
	if err := createMigrationsTable(db); err != nil {
		return err
	}

	// Apply each migration
	migrations := []struct {
		version int
		name    string
		sql     string
	}{
		{1, "create_projects_table", createProjectsTable},
		{2, "create_nicknames_table", createNicknamesTable},
		{3, "create_tasks_table", createTasksTable},
		{4, "create_entries_table", createEntriesTable},
		{5, "create_tombstones_table", createTombstonesTable},
		{6, "create_indices", createIndices},
	}

	for _, m := range migrations {
		applied, err := isMigrationApplied(db, m.version)
		if err != nil {
			return fmt.Errorf("could not check migration %d: %w", m.version, err)
		}

		if applied {
			continue
		}

		// Apply migration
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("could not apply migration %d (%s): %w", m.version, m.name, err)
		}

		// Record migration
		if err := recordMigration(db, m.version, m.name); err != nil {
			return fmt.Errorf("could not record migration %d: %w", m.version, err)
		}
	}

	return nil
}

// createMigrationsTable creates the migrations tracking table.
func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// isMigrationApplied checks if a migration has been applied.
func isMigrationApplied(db *sql.DB, version int) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// recordMigration records that a migration has been applied.
func recordMigration(db *sql.DB, version int, name string) error {
	_, err := db.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// Migration SQL statements

const createProjectsTable = `
CREATE TABLE projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	cached_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const createNicknamesTable = `
CREATE TABLE nicknames (
	name TEXT PRIMARY KEY,
	project_id TEXT NOT NULL
);
`

const createTasksTable = `
CREATE TABLE tasks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	project_id TEXT NOT NULL,
	remote_id TEXT,
	deleted BOOLEAN NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (name, project_id)
);
`

const createEntriesTable = `
CREATE TABLE entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	task_id TEXT NOT NULL,
	task_name TEXT NOT NULL,
	project_id TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	start_time TEXT NOT NULL,
	end_time TEXT,
	sync_state TEXT NOT NULL DEFAULT 'unsynced',
	remote_id TEXT,
	FOREIGN KEY (task_id) REFERENCES tasks(id)
);
`

const createTombstonesTable = `
CREATE TABLE tombstones (
	entry_id TEXT PRIMARY KEY,
	remote_id TEXT NOT NULL,
	project_id TEXT NOT NULL,
	deleted_at TEXT NOT NULL
);
`

const createIndices = `
CREATE INDEX IF NOT EXISTS idx_entries_task_name ON entries(task_name);
CREATE INDEX IF NOT EXISTS idx_entries_start ON entries(start_time);
CREATE INDEX IF NOT EXISTS idx_entries_sync ON entries(sync_state);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_deleted ON tasks(deleted);
CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_single_open ON entries((1)) WHERE end_time IS NULL;
`
