// Package tracker implements the time entry state machine and the history
// editor over the storage ports.
package tracker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jsuresh/ttracker/internal/application/ports"
	"github.com/jsuresh/ttracker/internal/domain/entry"
	"github.com/jsuresh/ttracker/internal/domain/errors"
	"github.com/jsuresh/ttracker/internal/infrastructure/logging"
)

// defaultLongEntryThreshold applies until enough entries exist for the
// statistical threshold.
const defaultLongEntryThreshold = 60 * time.Minute

// minEntriesForStats is the number of closed entries required before the
// long-entry threshold is derived from history instead of the default.
const minEntriesForStats = 10

// Manager drives the entry state machine: starting, stopping, and editing
// tracked time. All state lives in the store; the manager itself holds
// nothing between calls, so what it reports always reflects what survived
// the last write.
type Manager struct {
	entries  ports.EntryStoragePort
	tasks    ports.TaskStoragePort
	projects ports.ProjectStoragePort
	logger   *logging.Logger
	now      func() time.Time
}

// NewManager creates a new tracker manager.
func NewManager(entries ports.EntryStoragePort, tasks ports.TaskStoragePort, projects ports.ProjectStoragePort, logger *logging.Logger) *Manager {
	return &Manager{
		entries:  entries,
		tasks:    tasks,
		projects: projects,
		logger:   logger,
		now:      time.Now,
	}
}

// StopResult carries the closed entry and the long-entry warning verdict.
type StopResult struct {
	Entry     *entry.TimeEntry
	Warn      bool
	Threshold time.Duration
}

// Start begins tracking a task. If another task is being tracked it is
// closed at the same instant, so the log never shows a gap or an overlap
// at the switch point. Starting the task that is already being tracked is
// a no-op and returns the open entry unchanged.
//
// A zero `at` means now. projectRef may be a project id, a nickname, or
// "0"/empty to reuse the project the task was last tracked under.
func (m *Manager) Start(ctx context.Context, taskName, projectRef string, at time.Time, notes string) (*entry.TimeEntry, error) {
	if taskName == "" {
		return nil, errors.NewError(errors.CodeValidation, "task name is required", nil)
	}

	at, err := m.resolveTime(at)
	if err != nil {
		return nil, err
	}

	projectID, err := m.resolveProject(ctx, taskName, projectRef)
	if err != nil {
		return nil, err
	}

	active, err := m.entries.Active(ctx)
	if err != nil {
		return nil, err
	}

	if active != nil && active.TaskName == taskName {
		m.logger.DebugContext(ctx, "task already being tracked", "task", taskName)
		return active, nil
	}

	if active != nil && at.Before(active.StartTime) {
		return nil, errors.NewError(errors.CodeValidation,
			fmt.Sprintf("switch time %s precedes the active entry's start %s",
				at.Format("15:04"), active.StartTime.Format("15:04")),
			errors.ErrInvalidTime)
	}

	task, err := m.tasks.GetOrCreate(ctx, taskName, projectID)
	if err != nil {
		return nil, err
	}

	next := &entry.TimeEntry{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		TaskName:  task.Name,
		ProjectID: projectID,
		Notes:     notes,
		StartTime: at,
		SyncState: entry.SyncStateUnsynced,
	}

	if active != nil {
		if err := m.entries.StartSwitch(ctx, active.ID, at, next); err != nil {
			return nil, err
		}
		m.logger.InfoContext(ctx, "switched task",
			"from", active.TaskName, "to", taskName, "at", at.Format(time.RFC3339))
		return next, nil
	}

	if err := m.entries.Append(ctx, next); err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "started task", "task", taskName, "at", at.Format(time.RFC3339))
	return next, nil
}

// Stop closes the active entry. A zero `at` means now. The result flags
// entries that run long compared to the user's history, since a forgotten
// stop is the usual cause.
func (m *Manager) Stop(ctx context.Context, at time.Time, notes string) (*StopResult, error) {
	active, err := m.entries.Active(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, errors.NewError(errors.CodeValidation, "no task is being tracked", errors.ErrNoActiveEntry)
	}

	at, err = m.resolveTime(at)
	if err != nil {
		return nil, err
	}
	if at.Before(active.StartTime) {
		return nil, errors.NewError(errors.CodeValidation,
			fmt.Sprintf("end time %s precedes start %s",
				at.Format("15:04"), active.StartTime.Format("15:04")),
			errors.ErrInvalidTime)
	}

	// Compute the threshold before closing so the entry being stopped does
	// not count toward its own baseline.
	threshold, err := m.longEntryThreshold(ctx)
	if err != nil {
		return nil, err
	}

	storedNotes := notes
	if notes != "" && active.Notes != "" {
		storedNotes = " " + notes
	}
	if err := m.entries.Close(ctx, active.ID, at, storedNotes); err != nil {
		return nil, err
	}

	closed := *active
	closed.EndTime = &at
	if notes != "" {
		if closed.Notes != "" {
			closed.Notes += " " + notes
		} else {
			closed.Notes = notes
		}
	}

	m.logger.InfoContext(ctx, "stopped task",
		"task", closed.TaskName, "minutes", closed.Minutes())

	return &StopResult{
		Entry:     &closed,
		Warn:      closed.Duration() > threshold,
		Threshold: threshold,
	}, nil
}

// Status returns the open entry, or nil when idle. The answer is read from
// the store on every call.
func (m *Manager) Status(ctx context.Context) (*entry.TimeEntry, error) {
	return m.entries.Active(ctx)
}

// Pop removes the most recent entry from the log and returns it. The
// caller must name the task it expects to remove; a mismatch leaves the
// log untouched. Popping a synced entry queues its remote retraction.
func (m *Manager) Pop(ctx context.Context, expectedTask string) (*entry.TimeEntry, error) {
	last, err := m.entries.Last(ctx)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, errors.NewError(errors.CodeValidation, "nothing to pop: the log is empty", errors.ErrNoActiveEntry)
	}
	if last.TaskName != expectedTask {
		return nil, errors.NewError(errors.CodeValidation,
			fmt.Sprintf("most recent entry is for %q, not %q", last.TaskName, expectedTask),
			errors.ErrMismatch)
	}

	removed, err := m.entries.RemoveLast(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "popped entry",
		"task", removed.TaskName, "start", removed.StartTime.Format(time.RFC3339))
	return removed, nil
}

// Push appends a closed entry with explicit bounds. Used with Pop to fix
// up a mistaken entry; the pair is two independent writes, so a failed
// push after a successful pop leaves the popped entry gone.
func (m *Manager) Push(ctx context.Context, taskName, projectRef string, start, end time.Time, notes string) (*entry.TimeEntry, error) {
	if taskName == "" {
		return nil, errors.NewError(errors.CodeValidation, "task name is required", nil)
	}
	if end.Before(start) {
		return nil, errors.NewError(errors.CodeValidation,
			fmt.Sprintf("end time %s precedes start %s",
				end.Format("15:04"), start.Format("15:04")),
			errors.ErrInvalidTime)
	}
	if end.After(m.now()) {
		return nil, errors.NewError(errors.CodeValidation, "end time is in the future", errors.ErrInvalidTime)
	}

	projectID, err := m.resolveProject(ctx, taskName, projectRef)
	if err != nil {
		return nil, err
	}

	task, err := m.tasks.GetOrCreate(ctx, taskName, projectID)
	if err != nil {
		return nil, err
	}

	e := &entry.TimeEntry{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		TaskName:  task.Name,
		ProjectID: projectID,
		Notes:     notes,
		StartTime: start,
		EndTime:   &end,
		SyncState: entry.SyncStateUnsynced,
	}

	if err := m.entries.Append(ctx, e); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "pushed entry",
		"task", taskName, "minutes", e.Minutes())
	return e, nil
}

// DeleteTask removes a task and its entries from the local log. A task
// being tracked must be stopped first. Synced entries and the task's own
// remote record are retracted on the next sync.
func (m *Manager) DeleteTask(ctx context.Context, name string) error {
	task, err := m.tasks.Get(ctx, name)
	if err != nil {
		return err
	}
	if task == nil {
		return errors.NewError(errors.CodeNotFound, fmt.Sprintf("unknown task: %s", name), errors.ErrTaskNotFound)
	}

	active, err := m.entries.Active(ctx)
	if err != nil {
		return err
	}
	if active != nil && active.TaskName == name {
		return errors.NewError(errors.CodeValidation,
			fmt.Sprintf("task %q is being tracked; stop it first", name),
			errors.ErrTaskActive)
	}

	if err := m.entries.RemoveByTask(ctx, task.ID); err != nil {
		return err
	}

	// Without a remote record there is nothing to retract; drop the task
	// outright instead of parking it for sync.
	if task.RemoteID == "" {
		return m.tasks.Purge(ctx, task.ID)
	}
	return m.tasks.MarkDeleted(ctx, task.ID)
}

// Details returns every entry logged against a task, oldest first.
func (m *Manager) Details(ctx context.Context, name string) (*entry.Task, []*entry.TimeEntry, error) {
	task, err := m.tasks.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return nil, nil, errors.NewError(errors.CodeNotFound, fmt.Sprintf("unknown task: %s", name), errors.ErrTaskNotFound)
	}

	entries, err := m.entries.ListByTask(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return task, entries, nil
}

// List returns entries for display, newest last. Synced entries are
// filtered out unless includeSynced is set.
func (m *Manager) List(ctx context.Context, includeSynced bool) ([]*entry.TimeEntry, error) {
	all, err := m.entries.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if includeSynced {
		return all, nil
	}

	unsynced := make([]*entry.TimeEntry, 0, len(all))
	for _, e := range all {
		if !e.IsSynced() {
			unsynced = append(unsynced, e)
		}
	}
	return unsynced, nil
}

// resolveTime substitutes now for a zero timestamp and rejects times in
// the future, which would otherwise leave an entry whose duration shrinks
// as the clock catches up.
func (m *Manager) resolveTime(at time.Time) (time.Time, error) {
	now := m.now()
	if at.IsZero() {
		return now, nil
	}
	if at.After(now) {
		return time.Time{}, errors.NewError(errors.CodeValidation,
			fmt.Sprintf("%s is in the future", at.Format("2006-01-02 15:04")),
			errors.ErrInvalidTime)
	}
	return at, nil
}

// resolveProject turns a project reference into a cached project id. The
// reference may be a nickname or a raw id; "0" or empty reuses the
// project the task was last tracked under. Projects are never invented
// locally, so an unknown reference is an error, not a new project.
func (m *Manager) resolveProject(ctx context.Context, taskName, projectRef string) (string, error) {
	if projectRef == "" || projectRef == "0" {
		task, err := m.tasks.Get(ctx, taskName)
		if err != nil {
			return "", err
		}
		if task == nil {
			return "", errors.NewError(errors.CodeValidation,
				fmt.Sprintf("task %q has no history; a project is required", taskName),
				errors.ErrProjectUnknown)
		}
		return task.ProjectID, nil
	}

	id, err := m.projects.ResolveNickname(ctx, projectRef)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	project, err := m.projects.Get(ctx, projectRef)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", errors.NewError(errors.CodeValidation,
			fmt.Sprintf("unknown project %q; run 'ttracker projects' to list valid ids", projectRef),
			errors.ErrProjectUnknown)
	}
	return project.ID, nil
}

// longEntryThreshold derives the warning threshold from the user's closed
// entries: mean plus two standard deviations once enough history exists,
// a fixed hour before that.
func (m *Manager) longEntryThreshold(ctx context.Context) (time.Duration, error) {
	durations, err := m.entries.ClosedDurations(ctx)
	if err != nil {
		return 0, err
	}
	if len(durations) <= minEntriesForStats {
		return defaultLongEntryThreshold, nil
	}

	var sum float64
	for _, d := range durations {
		sum += d.Minutes()
	}
	mean := sum / float64(len(durations))

	var variance float64
	for _, d := range durations {
		diff := d.Minutes() - mean
		variance += diff * diff
	}
	variance /= float64(len(durations))

	minutes := mean + 2*math.Sqrt(variance)
	return time.Duration(minutes * float64(time.Minute)), nil
}
