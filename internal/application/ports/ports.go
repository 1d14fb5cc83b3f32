// Package ports defines the application layer port interfaces following hexagonal architecture.
// Ports are abstractions that allow the application core to interact with external systems
// (adapters) without knowing their implementation details.
package ports

import (
	"context"
	"time"

	"github.com/jsuresh/ttracker/internal/domain/entry"
)

// EntryStoragePort defines the interface for persisting the ordered time
// entry log. The store is the single source of truth while offline.
type EntryStoragePort interface {
	// Append persists a new entry at the end of the log. The operation
	// fails without mutating the store if appending an open entry while
	// another entry is still open.
	Append(ctx context.Context, e *entry.TimeEntry) error

	// StartSwitch atomically closes the given open entry at switchAt and
	// appends the new open entry. Either both changes commit or neither.
	StartSwitch(ctx context.Context, activeID string, switchAt time.Time, next *entry.TimeEntry) error

	// Close sets the end time on the given open entry.
	Close(ctx context.Context, id string, at time.Time, notes string) error

	// Active returns the single open entry, or nil if the log is idle.
	Active(ctx context.Context) (*entry.TimeEntry, error)

	// Last returns the most recently appended entry, or nil on an empty log.
	Last(ctx context.Context) (*entry.TimeEntry, error)

	// RemoveLast deletes the most recently appended entry, writing a
	// tombstone in the same transaction when the entry was synced.
	// Returns the removed entry.
	RemoveLast(ctx context.Context) (*entry.TimeEntry, error)

	// Unsynced returns all closed unsynced entries ordered by start time,
	// oldest first.
	Unsynced(ctx context.Context) ([]*entry.TimeEntry, error)

	// MarkSynced records the remote identifier and flips the entry to
	// synced. Exactly one entry must match.
	MarkSynced(ctx context.Context, id, remoteID string) error

	// MarkUnsynced flips an amended entry back to unsynced while keeping
	// its remote id, so the next sync issues an update.
	MarkUnsynced(ctx context.Context, id string) error

	// ListAll returns every entry in insertion order.
	ListAll(ctx context.Context) ([]*entry.TimeEntry, error)

	// ListByTask returns all entries for a task name in insertion order.
	ListByTask(ctx context.Context, taskName string) ([]*entry.TimeEntry, error)

	// ClosedDurations returns the durations of all closed entries, used
	// for the long-entry warning heuristic.
	ClosedDurations(ctx context.Context) ([]time.Duration, error)

	// RemoveByTask deletes all entries logged against a task, writing
	// tombstones for the synced ones in the same transaction.
	RemoveByTask(ctx context.Context, taskID string) error
}

// TaskStoragePort defines the interface for task metadata.
type TaskStoragePort interface {
	// GetOrCreate returns the task with the given name under the project,
	// creating it when absent.
	GetOrCreate(ctx context.Context, name, projectID string) (*entry.Task, error)

	// Get returns the task by name, or nil if unknown.
	Get(ctx context.Context, name string) (*entry.Task, error)

	// List returns all non-deleted tasks ordered by name.
	List(ctx context.Context) ([]*entry.Task, error)

	// SetRemoteID records the remote identifier assigned to a task.
	SetRemoteID(ctx context.Context, id, remoteID string) error

	// MarkDeleted hides the task locally, keeping it for remote retraction.
	MarkDeleted(ctx context.Context, id string) error

	// Deleted returns tasks marked deleted that still carry a remote id.
	Deleted(ctx context.Context) ([]*entry.Task, error)

	// Purge removes a deleted task once its remote retraction succeeded.
	Purge(ctx context.Context, id string) error
}

// ProjectStoragePort defines the interface for the local project cache and
// project nicknames.
type ProjectStoragePort interface {
	// ReplaceAll replaces the cached project list from the remote service.
	ReplaceAll(ctx context.Context, projects []*entry.Project) error

	// Get returns the project by id, or nil if not cached.
	Get(ctx context.Context, id string) (*entry.Project, error)

	// List returns all cached projects ordered by id.
	List(ctx context.Context) ([]*entry.Project, error)

	// SetNickname maps a short name to a project id.
	SetNickname(ctx context.Context, name, projectID string) error

	// DeleteNickname removes a nickname mapping.
	DeleteNickname(ctx context.Context, name string) error

	// ResolveNickname returns the project id for a nickname, or the empty
	// string if the nickname is unknown.
	ResolveNickname(ctx context.Context, name string) (string, error)

	// Nicknames returns all nickname mappings.
	Nicknames(ctx context.Context) (map[string]string, error)
}

// TombstoneStoragePort defines the interface for deletion reconciliation
// records.
type TombstoneStoragePort interface {
	// Add records a tombstone for a removed synced entry.
	Add(ctx context.Context, t *entry.Tombstone) error

	// List returns all pending tombstones oldest first.
	List(ctx context.Context) ([]*entry.Tombstone, error)

	// Remove deletes a tombstone once the remote retraction succeeded.
	Remove(ctx context.Context, entryID string) error
}

// RemoteTask is a task as known to the remote billing service.
type RemoteTask struct {
	ID   string // Remote task identifier
	Name string // Task name on the remote service
}

// RemoteProject is a project as known to the remote billing service.
type RemoteProject struct {
	ID   string // Remote project identifier
	Name string // Project name on the remote service
}

// TimeEntryRequest carries the fields submitted for a remote time entry.
type TimeEntryRequest struct {
	ProjectID string    // Remote project id
	TaskID    string    // Remote task id
	Hours     float64   // Billed hours
	Notes     string    // Entry notes
	Date      time.Time // Date the work was performed
}

// BillingClientPort defines the interface to the remote billing service.
// It must be reachable only during sync and explicit project refreshes;
// every other operation works fully offline.
type BillingClientPort interface {
	// ListProjects returns all projects the user can log time against.
	ListProjects(ctx context.Context) ([]RemoteProject, error)

	// ListTasks returns the tasks attached to a project.
	ListTasks(ctx context.Context, projectID string) ([]RemoteTask, error)

	// CreateTask creates a task under a project and returns its remote id.
	CreateTask(ctx context.Context, projectID, name string) (string, error)

	// CreateTimeEntry submits a new time entry and returns its remote id.
	CreateTimeEntry(ctx context.Context, req TimeEntryRequest) (string, error)

	// UpdateTimeEntry amends an existing remote time entry.
	UpdateTimeEntry(ctx context.Context, remoteID string, req TimeEntryRequest) error

	// DeleteTimeEntry retracts a remote time entry.
	DeleteTimeEntry(ctx context.Context, remoteID string) error

	// DeleteTask retracts a remote task.
	DeleteTask(ctx context.Context, remoteID string) error
}
