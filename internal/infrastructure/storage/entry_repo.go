package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jsuresh/ttracker/internal/application/ports"
	"github.com/jsuresh/ttracker/internal/domain/entry"
	domainErrors "github.com/jsuresh/ttracker/internal/domain/errors"
)

// Compile-time check that EntryRepository implements EntryStoragePort.
var _ ports.EntryStoragePort = (*EntryRepository)(nil)

const entryColumns = "seq, id, task_id, task_name, project_id, notes, start_time, end_time, sync_state, remote_id"

// EntryRepository implements EntryStoragePort using SQLite.
type EntryRepository struct {
	db *sql.DB
}

// NewEntryRepository creates a new entry repository.
func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Append persists a new entry at the end of the log.
func (r *EntryRepository) Append(ctx context.Context, e *entry.TimeEntry) error {
	if err := e.Validate(); err != nil {
		return domainErrors.NewError(domainErrors.CodeValidation, "invalid entry", err)
	}

	query := `
		INSERT INTO entries (id, task_id, task_name, project_id, notes, start_time, end_time, sync_state, remote_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.TaskID,
		e.TaskName,
		e.ProjectID,
		e.Notes,
		e.StartTime.Format(time.RFC3339),
		nullableTime(e.EndTime),
		string(e.SyncState),
		nullableString(e.RemoteID),
	)

	if err != nil {
		if strings.Contains(err.Error(), "idx_entries_single_open") {
			return domainErrors.NewError(domainErrors.CodeStore, "an entry is already open", domainErrors.ErrStoreCorrupt)
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}

	return nil
}

// StartSwitch atomically closes the active entry at switchAt and appends
// the new open entry. The close must land before the insert so the
// single-open-entry index never trips on a legitimate switch.
func (r *EntryRepository) StartSwitch(ctx context.Context, activeID string, switchAt time.Time, next *entry.TimeEntry) error {
	if err := next.Validate(); err != nil {
		return domainErrors.NewError(domainErrors.CodeValidation, "invalid entry", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE entries SET end_time = ?, sync_state = ? WHERE id = ? AND end_time IS NULL",
		switchAt.Format(time.RFC3339), string(entry.SyncStateUnsynced), activeID,
	)
	if err != nil {
		return fmt.Errorf("failed to close active entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check close result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("active entry not found: %s", activeID), domainErrors.ErrNoActiveEntry)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (id, task_id, task_name, project_id, notes, start_time, end_time, sync_state, remote_id)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?, NULL)
	`,
		next.ID, next.TaskID, next.TaskName, next.ProjectID, next.Notes,
		next.StartTime.Format(time.RFC3339), string(next.SyncState),
	)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}

	return tx.Commit()
}

// Close sets the end time on the given open entry and appends any notes.
func (r *EntryRepository) Close(ctx context.Context, id string, at time.Time, notes string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE entries SET end_time = ?, notes = notes || ? WHERE id = ? AND end_time IS NULL",
		at.Format(time.RFC3339), notes, id,
	)
	if err != nil {
		return fmt.Errorf("failed to close entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check close result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("open entry not found: %s", id), domainErrors.ErrNoActiveEntry)
	}

	return nil
}

// Active returns the single open entry, or nil if the log is idle.
func (r *EntryRepository) Active(ctx context.Context) (*entry.TimeEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM entries WHERE end_time IS NULL", entryColumns)

	e, err := scanEntryRow(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil // Idle
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active entry: %w", err)
	}

	return e, nil
}

// Last returns the most recently appended entry, or nil on an empty log.
func (r *EntryRepository) Last(ctx context.Context) (*entry.TimeEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM entries ORDER BY seq DESC LIMIT 1", entryColumns)

	e, err := scanEntryRow(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last entry: %w", err)
	}

	return e, nil
}

// RemoveLast deletes the most recently appended entry, writing a tombstone
// in the same transaction when the entry had been synced. Returns nil if
// the log is empty.
func (r *EntryRepository) RemoveLast(ctx context.Context) (*entry.TimeEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("SELECT %s FROM entries ORDER BY seq DESC LIMIT 1", entryColumns)
	e, err := scanEntryRow(tx.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last entry: %w", err)
	}

	if e.IsSynced() {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO tombstones (entry_id, remote_id, project_id, deleted_at) VALUES (?, ?, ?, ?)",
			e.ID, e.RemoteID, e.ProjectID, time.Now().Format(time.RFC3339),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to record tombstone: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE seq = ?", e.Seq); err != nil {
		return nil, fmt.Errorf("failed to remove entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit removal: %w", err)
	}

	return e, nil
}

// Unsynced returns all closed unsynced entries ordered by start time,
// oldest first, preserving causal task creation order for sync.
func (r *EntryRepository) Unsynced(ctx context.Context) ([]*entry.TimeEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM entries
		WHERE sync_state = ? AND end_time IS NOT NULL
		ORDER BY start_time ASC, seq ASC
	`, entryColumns)

	return r.queryEntries(ctx, query, string(entry.SyncStateUnsynced))
}

// MarkSynced records the remote identifier and flips the entry to synced.
func (r *EntryRepository) MarkSynced(ctx context.Context, id, remoteID string) error {
	if remoteID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "remote id is required", nil)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE entries SET sync_state = ?, remote_id = ? WHERE id = ?",
		string(entry.SyncStateSynced), remoteID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark entry synced: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("entry not found: %s", id), nil)
	}

	return nil
}

// MarkUnsynced flips an amended entry back to unsynced, keeping the
// remote id so the next sync updates instead of creating a duplicate.
func (r *EntryRepository) MarkUnsynced(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE entries SET sync_state = ? WHERE id = ?",
		string(entry.SyncStateUnsynced), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark entry unsynced: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("entry not found: %s", id), nil)
	}

	return nil
}

// ListAll returns every entry in insertion order.
func (r *EntryRepository) ListAll(ctx context.Context) ([]*entry.TimeEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM entries ORDER BY seq ASC", entryColumns)
	return r.queryEntries(ctx, query)
}

// ListByTask returns all entries for a task name in insertion order.
func (r *EntryRepository) ListByTask(ctx context.Context, taskName string) ([]*entry.TimeEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM entries WHERE task_name = ? ORDER BY seq ASC", entryColumns)
	return r.queryEntries(ctx, query, taskName)
}

// ClosedDurations returns the durations of all closed entries.
func (r *EntryRepository) ClosedDurations(ctx context.Context) ([]time.Duration, error) {
	entries, err := r.queryEntries(ctx, fmt.Sprintf(
		"SELECT %s FROM entries WHERE end_time IS NOT NULL", entryColumns))
	if err != nil {
		return nil, err
	}

	durations := make([]time.Duration, 0, len(entries))
	for _, e := range entries {
		durations = append(durations, e.Duration())
	}
	return durations, nil
}

// RemoveByTask deletes all entries logged against a task, writing
// tombstones for the synced ones so a later sync retracts them.
func (r *EntryRepository) RemoveByTask(ctx context.Context, taskID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tombstones (entry_id, remote_id, project_id, deleted_at)
		SELECT id, remote_id, project_id, ?
		FROM entries
		WHERE task_id = ? AND sync_state = ?
	`, time.Now().Format(time.RFC3339), taskID, string(entry.SyncStateSynced))
	if err != nil {
		return fmt.Errorf("failed to record tombstones: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("failed to remove entries: %w", err)
	}

	return tx.Commit()
}

// queryEntries executes a query and returns multiple entries.
func (r *EntryRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*entry.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*entry.TimeEntry
	for rows.Next() {
		e, err := scanEntryRows(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

// scanEntryRow scans a single row into an entry.
func scanEntryRow(row *sql.Row) (*entry.TimeEntry, error) {
	var (
		seq                             int64
		id, taskID, taskName, projectID string
		notes, startTime, syncState     string
		endTime, remoteID               sql.NullString
	)

	err := row.Scan(&seq, &id, &taskID, &taskName, &projectID, &notes, &startTime, &endTime, &syncState, &remoteID)
	if err != nil {
		return nil, err
	}

	return buildEntry(seq, id, taskID, taskName, projectID, notes, startTime, endTime, syncState, remoteID)
}

// scanEntryRows scans rows into an entry.
func scanEntryRows(rows *sql.Rows) (*entry.TimeEntry, error) {
	var (
		seq                             int64
		id, taskID, taskName, projectID string
		notes, startTime, syncState     string
		endTime, remoteID               sql.NullString
	)

	err := rows.Scan(&seq, &id, &taskID, &taskName, &projectID, &notes, &startTime, &endTime, &syncState, &remoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	return buildEntry(seq, id, taskID, taskName, projectID, notes, startTime, endTime, syncState, remoteID)
}

// buildEntry constructs a TimeEntry domain entity from database fields.
func buildEntry(
	seq int64,
	id, taskID, taskName, projectID, notes, startTime string,
	endTime sql.NullString,
	syncState string,
	remoteID sql.NullString,
) (*entry.TimeEntry, error) {
	e := &entry.TimeEntry{
		Seq:       seq,
		ID:        id,
		TaskID:    taskID,
		TaskName:  taskName,
		ProjectID: projectID,
		Notes:     notes,
		SyncState: entry.SyncState(syncState),
	}

	parsedStart, err := time.Parse(time.RFC3339, startTime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start_time: %w", err)
	}
	e.StartTime = parsedStart

	if endTime.Valid {
		parsedEnd, err := time.Parse(time.RFC3339, endTime.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse end_time: %w", err)
		}
		e.EndTime = &parsedEnd
	}

	if remoteID.Valid {
		e.RemoteID = remoteID.String
	}

	return e, nil
}

// nullableString returns a sql.NullString for the given string.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableTime returns a sql.NullString holding the RFC3339 rendering of t.
func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}
