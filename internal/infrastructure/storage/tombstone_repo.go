package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jsuresh/ttracker/internal/application/ports"
	"github.com/jsuresh/ttracker/internal/domain/entry"
)

// Compile-time check that TombstoneRepository implements TombstoneStoragePort.
var _ ports.TombstoneStoragePort = (*TombstoneRepository)(nil)

// TombstoneRepository implements TombstoneStoragePort using SQLite.
// Tombstones carry the remote ids of locally deleted synced entries until
// a sync run retracts them.
type TombstoneRepository struct {
	db *sql.DB
}

// NewTombstoneRepository creates a new tombstone repository.
func NewTombstoneRepository(db *sql.DB) *TombstoneRepository {
	return &TombstoneRepository{db: db}
}

// Add records a tombstone for a removed synced entry.
func (r *TombstoneRepository) Add(ctx context.Context, t *entry.Tombstone) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tombstones (entry_id, remote_id, project_id, deleted_at) VALUES (?, ?, ?, ?)",
		t.EntryID, t.RemoteID, t.ProjectID, t.DeletedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to add tombstone: %w", err)
	}
	return nil
}

// List returns all pending tombstones oldest first.
func (r *TombstoneRepository) List(ctx context.Context) ([]*entry.Tombstone, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT entry_id, remote_id, project_id, deleted_at FROM tombstones ORDER BY deleted_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query tombstones: %w", err)
	}
	defer rows.Close()

	var tombstones []*entry.Tombstone
	for rows.Next() {
		var (
			t         entry.Tombstone
			deletedAt string
		)
		if err := rows.Scan(&t.EntryID, &t.RemoteID, &t.ProjectID, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339, deletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse deleted_at: %w", err)
		}
		t.DeletedAt = parsed
		tombstones = append(tombstones, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tombstones: %w", err)
	}

	return tombstones, nil
}

// Remove deletes a tombstone once the remote retraction succeeded.
func (r *TombstoneRepository) Remove(ctx context.Context, entryID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM tombstones WHERE entry_id = ?", entryID)
	if err != nil {
		return fmt.Errorf("failed to remove tombstone: %w", err)
	}
	return nil
}
