package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jsuresh/ttracker/internal/application/ports"
	"github.com/jsuresh/ttracker/internal/domain/entry"
	domainErrors "github.com/jsuresh/ttracker/internal/domain/errors"
)

// Compile-time check that TaskRepository implements TaskStoragePort.
var _ ports.TaskStoragePort = (*TaskRepository)(nil)

// TaskRepository implements TaskStoragePort using SQLite.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// GetOrCreate returns the task with the given name under the project,
// creating it when absent. Tasks come into existence implicitly on the
// first start or push that references them.
func (r *TaskRepository) GetOrCreate(ctx context.Context, name, projectID string) (*entry.Task, error) {
	if name == "" {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "task name is required", nil)
	}
	if projectID == "" {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "project id is required", nil)
	}

	task, err := r.get(ctx, "SELECT id, name, project_id, remote_id, deleted FROM tasks WHERE name = ? AND project_id = ?", name, projectID)
	if err != nil {
		return nil, err
	}
	if task != nil {
		return task, nil
	}

	task = &entry.Task{
		ID:        uuid.NewString(),
		Name:      name,
		ProjectID: projectID,
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO tasks (id, name, project_id) VALUES (?, ?, ?)",
		task.ID, task.Name, task.ProjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// Get returns the task by name, or nil if unknown.
func (r *TaskRepository) Get(ctx context.Context, name string) (*entry.Task, error) {
	return r.get(ctx, "SELECT id, name, project_id, remote_id, deleted FROM tasks WHERE name = ? AND deleted = 0", name)
}

// List returns all non-deleted tasks ordered by name.
func (r *TaskRepository) List(ctx context.Context) ([]*entry.Task, error) {
	return r.queryTasks(ctx, "SELECT id, name, project_id, remote_id, deleted FROM tasks WHERE deleted = 0 ORDER BY name ASC")
}

// SetRemoteID records the remote identifier assigned to a task.
func (r *TaskRepository) SetRemoteID(ctx context.Context, id, remoteID string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE tasks SET remote_id = ? WHERE id = ?", remoteID, id)
	if err != nil {
		return fmt.Errorf("failed to set task remote id: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("task not found: %s", id), domainErrors.ErrTaskNotFound)
	}

	return nil
}

// MarkDeleted hides the task locally, keeping it for remote retraction.
func (r *TaskRepository) MarkDeleted(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE tasks SET deleted = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark task deleted: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("task not found: %s", id), domainErrors.ErrTaskNotFound)
	}

	return nil
}

// Deleted returns tasks marked deleted that still carry a remote id.
func (r *TaskRepository) Deleted(ctx context.Context) ([]*entry.Task, error) {
	return r.queryTasks(ctx, "SELECT id, name, project_id, remote_id, deleted FROM tasks WHERE deleted = 1 AND remote_id IS NOT NULL")
}

// Purge removes a task row for good. Callers reach it either after the
// remote retraction of a deleted task succeeded, or directly when the task
// never had a remote id and there is nothing to retract.
func (r *TaskRepository) Purge(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to purge task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("task not found: %s", id), domainErrors.ErrTaskNotFound)
	}

	return nil
}

func (r *TaskRepository) get(ctx context.Context, query string, args ...any) (*entry.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*entry.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*entry.Task
	for rows.Next() {
		var (
			task     entry.Task
			remoteID sql.NullString
		)
		if err := rows.Scan(&task.ID, &task.Name, &task.ProjectID, &remoteID, &task.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if remoteID.Valid {
			task.RemoteID = remoteID.String
		}
		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

func scanTask(row *sql.Row) (*entry.Task, error) {
	var (
		task     entry.Task
		remoteID sql.NullString
	)
	if err := row.Scan(&task.ID, &task.Name, &task.ProjectID, &remoteID, &task.Deleted); err != nil {
		return nil, err
	}
	if remoteID.Valid {
		task.RemoteID = remoteID.String
	}
	return &task, nil
}
