package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jsuresh/ttracker/internal/application/ports"
	"github.com/jsuresh/ttracker/internal/domain/entry"
	domainErrors "github.com/jsuresh/ttracker/internal/domain/errors"
)

// Compile-time check that ProjectRepository implements ProjectStoragePort.
var _ ports.ProjectStoragePort = (*ProjectRepository)(nil)

// ProjectRepository implements ProjectStoragePort using SQLite. Projects
// are a cache of the remote service's project list; nicknames are purely
// local shorthand.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// ReplaceAll replaces the cached project list from the remote service.
func (r *ProjectRepository) ReplaceAll(ctx context.Context, projects []*entry.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM projects"); err != nil {
		return fmt.Errorf("failed to clear project cache: %w", err)
	}

	for _, p := range projects {
		if _, err := tx.ExecContext(ctx, "INSERT INTO projects (id, name) VALUES (?, ?)", p.ID, p.Name); err != nil {
			return fmt.Errorf("failed to cache project %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// Get returns the project by id, or nil if not cached.
func (r *ProjectRepository) Get(ctx context.Context, id string) (*entry.Project, error) {
	var p entry.Project
	err := r.db.QueryRowContext(ctx, "SELECT id, name FROM projects WHERE id = ?", id).Scan(&p.ID, &p.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// List returns all cached projects ordered by id.
func (r *ProjectRepository) List(ctx context.Context) ([]*entry.Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM projects ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []*entry.Project
	for rows.Next() {
		var p entry.Project
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// SetNickname maps a short name to a project id. The project must be in
// the local cache so a typo cannot create a dangling alias.
func (r *ProjectRepository) SetNickname(ctx context.Context, name, projectID string) error {
	p, err := r.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if p == nil {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("project not cached: %s", projectID), domainErrors.ErrProjectUnknown)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO nicknames (name, project_id) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET project_id = excluded.project_id",
		name, projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to set nickname: %w", err)
	}
	return nil
}

// DeleteNickname removes a nickname mapping.
func (r *ProjectRepository) DeleteNickname(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM nicknames WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete nickname: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("nickname not found: %s", name), nil)
	}

	return nil
}

// ResolveNickname returns the project id for a nickname, or the empty
// string if the nickname is unknown.
func (r *ProjectRepository) ResolveNickname(ctx context.Context, name string) (string, error) {
	var projectID string
	err := r.db.QueryRowContext(ctx, "SELECT project_id FROM nicknames WHERE name = ?", name).Scan(&projectID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve nickname: %w", err)
	}
	return projectID, nil
}

// Nicknames returns all nickname mappings.
func (r *ProjectRepository) Nicknames(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, project_id FROM nicknames ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query nicknames: %w", err)
	}
	defer rows.Close()

	nicknames := make(map[string]string)
	for rows.Next() {
		var name, projectID string
		if err := rows.Scan(&name, &projectID); err != nil {
			return nil, fmt.Errorf("failed to scan nickname: %w", err)
		}
		nicknames[name] = projectID
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nicknames: %w", err)
	}

	return nicknames, nil
}
