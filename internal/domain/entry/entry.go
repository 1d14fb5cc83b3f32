// Package entry defines domain models for tracked time: projects, tasks,
// and the time entries logged against them.
package entry

import (
	"errors"
	"strings"
	"time"
)

// Field-level invariant violations reported by Validate.
var (
	errTaskNameRequired      = errors.New("task name required")
	errProjectRequired       = errors.New("project required")
	errEndBeforeStart        = errors.New("end time before start time")
	errSyncedWithoutRemoteID = errors.New("synced entry missing remote id")
	errOpenWithRemoteID      = errors.New("open entry claims remote id")
)

// SyncState represents whether a time entry has been pushed to the remote
// billing service.
type SyncState string

const (
	SyncStateUnsynced SyncState = "unsynced" // Entry exists only locally
	SyncStateSynced   SyncState = "synced"   // Entry accepted by the remote service
)

// Project represents a billable project as known to the remote service.
// Projects are never created locally; the local copy is a cache.
type Project struct {
	ID   string // Remote project identifier
	Name string // Human-readable project name
}

// Task represents a named unit of work within a project. Tasks are created
// implicitly the first time an entry is started or pushed against them.
type Task struct {
	ID        string // Local identifier (UUID)
	Name      string // Unique within a project
	ProjectID string // Owning project
	RemoteID  string // Remote task identifier, empty until synced
	Deleted   bool   // Hidden locally, pending remote retraction
}

// PrettyName returns the task name with underscores rendered as spaces,
// as submitted to the remote service.
func (t *Task) PrettyName() string {
	return strings.ReplaceAll(t.Name, "_", " ")
}

// TimeEntry represents one recorded span of work on a task. An entry with
// no end time is open: it is the single currently tracked span.
type TimeEntry struct {
	ID        string     // Local identity, stable across edits (UUID)
	Seq       int64      // Insertion sequence, defines "most recent" for pop
	TaskID    string     // Owning task
	TaskName  string     // Denormalized task name for display and matching
	ProjectID string     // Owning project (must agree with the task's)
	Notes     string     // Free-form notes
	StartTime time.Time  // When work began
	EndTime   *time.Time // When work ended, nil while open
	SyncState SyncState  // Local sync status
	RemoteID  string     // Remote entry identifier, empty until accepted
}

// IsOpen reports whether the entry is still being tracked.
func (e *TimeEntry) IsOpen() bool {
	return e.EndTime == nil
}

// EndOrNow returns the end time for closed entries and the current time
// for open ones.
func (e *TimeEntry) EndOrNow() time.Time {
	if e.EndTime != nil {
		return *e.EndTime
	}
	return time.Now()
}

// Duration returns the tracked span, measured up to now for open entries.
func (e *TimeEntry) Duration() time.Duration {
	return e.EndOrNow().Sub(e.StartTime)
}

// Minutes returns the tracked span in whole minutes.
func (e *TimeEntry) Minutes() int {
	return int(e.Duration() / time.Minute)
}

// Hours returns the tracked span in fractional hours, as the remote
// service bills it.
func (e *TimeEntry) Hours() float64 {
	return e.Duration().Hours()
}

// IsSynced reports whether the entry has been accepted remotely and not
// amended since.
func (e *TimeEntry) IsSynced() bool {
	return e.SyncState == SyncStateSynced
}

// Tombstone records the remote identity of a deleted entry so a later sync
// can retract it from the billing service.
type Tombstone struct {
	EntryID   string    // Local id of the removed entry
	RemoteID  string    // Remote entry id to delete
	ProjectID string    // Project the entry belonged to
	DeletedAt time.Time // When the entry was removed locally
}

// Validate checks entry field invariants that hold independent of the
// rest of the log.
func (e *TimeEntry) Validate() error {
	if e.TaskName == "" {
		return errTaskNameRequired
	}
	if e.ProjectID == "" {
		return errProjectRequired
	}
	if e.EndTime != nil && e.EndTime.Before(e.StartTime) {
		return errEndBeforeStart
	}
	if e.SyncState == SyncStateSynced && e.RemoteID == "" {
		return errSyncedWithoutRemoteID
	}
	if e.SyncState == SyncStateUnsynced && e.IsOpen() && e.RemoteID != "" {
		return errOpenWithRemoteID
	}
	return nil
}
