// Package sync pushes the local time entry log to the remote billing
// service. The remote side is treated as write-only: sync never imports
// remote changes back into the store.
package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jsuresh/ttracker/internal/application/ports"
	"github.com/jsuresh/ttracker/internal/domain/entry"
	"github.com/jsuresh/ttracker/internal/domain/errors"
	"github.com/jsuresh/ttracker/internal/infrastructure/logging"
	"github.com/jsuresh/ttracker/internal/infrastructure/tracing"
)

// Engine drives a sync run. Every step is idempotent, so a run that dies
// halfway can simply be repeated: work already acknowledged by the remote
// service is recorded locally before the next piece is attempted.
type Engine struct {
	entries    ports.EntryStoragePort
	tasks      ports.TaskStoragePort
	projects   ports.ProjectStoragePort
	tombstones ports.TombstoneStoragePort
	billing    ports.BillingClientPort
	logger     *logging.Logger
	tracer     *tracing.Tracer
}

// NewEngine creates a new sync engine.
func NewEngine(
	entries ports.EntryStoragePort,
	tasks ports.TaskStoragePort,
	projects ports.ProjectStoragePort,
	tombstones ports.TombstoneStoragePort,
	billing ports.BillingClientPort,
	logger *logging.Logger,
	tracer *tracing.Tracer,
) *Engine {
	return &Engine{
		entries:    entries,
		tasks:      tasks,
		projects:   projects,
		tombstones: tombstones,
		billing:    billing,
		logger:     logger,
		tracer:     tracer,
	}
}

// Options control a sync run.
type Options struct {
	// All re-flags every synced entry so the run re-sends it as an
	// update, repairing edits made on the remote side.
	All bool
}

// Failure records one piece of work the remote service rejected. The rest
// of the run proceeds around it.
type Failure struct {
	EntryID  string
	TaskName string
	Err      error
}

// Report summarizes what a sync run accomplished.
type Report struct {
	Created   int              // Entries newly created remotely
	Updated   int              // Entries amended remotely
	Retracted int              // Remote entries and tasks deleted
	Pending   *entry.TimeEntry // Open entry skipped this run, if any
	Failures  []Failure
}

// Failed reports whether any work was rejected.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

// Run performs one sync: remote tasks are created first, then closed
// unsynced entries are pushed oldest-first, then local deletions are
// retracted. A returned error means the run could not proceed at all;
// per-entry rejections land in the report instead.
func (e *Engine) Run(ctx context.Context, opts Options) (*Report, error) {
	ctx = logging.WithSyncRunID(ctx, uuid.NewString()[:8])

	if opts.All {
		if err := e.reopenSynced(ctx); err != nil {
			return nil, err
		}
	}

	unsynced, err := e.entries.Unsynced(ctx)
	if err != nil {
		return nil, err
	}

	ctx, runSpan := e.tracer.StartSyncRunSpan(ctx, len(unsynced))
	report := &Report{}

	if err := e.ensureRemoteTasks(ctx, report); err != nil {
		runSpan.EndWithError(err)
		return nil, err
	}

	if err := e.pushEntries(ctx, unsynced, report); err != nil {
		runSpan.EndWithError(err)
		return nil, err
	}

	e.retractEntries(ctx, report)
	e.retractTasks(ctx, report)

	report.Pending, err = e.entries.Active(ctx)
	if err != nil {
		runSpan.EndWithError(err)
		return nil, err
	}
	if report.Pending != nil {
		e.logger.InfoContext(ctx, "open entry skipped", "task", report.Pending.TaskName)
	}

	runSpan.SetCounts(report.Created, report.Updated, report.Retracted, len(report.Failures))
	runSpan.End()

	e.logger.InfoContext(ctx, "sync finished",
		"created", report.Created,
		"updated", report.Updated,
		"retracted", report.Retracted,
		"failed", len(report.Failures))

	return report, nil
}

// RefreshProjects replaces the local project cache with the remote
// project list and returns it.
func (e *Engine) RefreshProjects(ctx context.Context) ([]*entry.Project, error) {
	remote, err := e.billing.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	projects := make([]*entry.Project, 0, len(remote))
	for _, p := range remote {
		projects = append(projects, &entry.Project{ID: p.ID, Name: p.Name})
	}

	if err := e.projects.ReplaceAll(ctx, projects); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "refreshed project cache", "projects", len(projects))
	return projects, nil
}

// ensureRemoteTasks gives every local task a remote id before any entry
// referencing it is pushed. Matching is by name within the project, so a
// run that created the task but died before recording the id finds it
// again instead of creating a duplicate.
func (e *Engine) ensureRemoteTasks(ctx context.Context, report *Report) error {
	tasks, err := e.tasks.List(ctx)
	if err != nil {
		return err
	}

	remoteByProject := make(map[string]map[string]string) // project -> task name -> remote id
	for _, task := range tasks {
		if task.RemoteID != "" {
			continue
		}

		byName, ok := remoteByProject[task.ProjectID]
		if !ok {
			remote, err := e.billing.ListTasks(ctx, task.ProjectID)
			if err != nil {
				if errors.Is(err, errors.ErrRemoteAuth) {
					return err
				}
				report.Failures = append(report.Failures, Failure{TaskName: task.Name, Err: err})
				continue
			}
			byName = make(map[string]string, len(remote))
			for _, rt := range remote {
				byName[rt.Name] = rt.ID
			}
			remoteByProject[task.ProjectID] = byName
		}

		remoteID, ok := byName[task.PrettyName()]
		if !ok {
			remoteID, err = e.billing.CreateTask(ctx, task.ProjectID, task.PrettyName())
			if err != nil {
				if errors.Is(err, errors.ErrRemoteAuth) {
					return err
				}
				report.Failures = append(report.Failures, Failure{TaskName: task.Name, Err: err})
				continue
			}
			byName[task.PrettyName()] = remoteID
			e.logger.InfoContext(ctx, "created remote task", "task", task.Name, "remote_id", remoteID)
		}

		if err := e.tasks.SetRemoteID(ctx, task.ID, remoteID); err != nil {
			return err
		}
		task.RemoteID = remoteID
	}

	return nil
}

// pushEntries walks the closed unsynced entries oldest-first and creates
// or updates each one remotely. Success is recorded locally entry by
// entry, so a crash mid-walk loses nothing already acknowledged.
func (e *Engine) pushEntries(ctx context.Context, unsynced []*entry.TimeEntry, report *Report) error {
	tasksByID, err := e.taskIndex(ctx)
	if err != nil {
		return err
	}

	for _, en := range unsynced {
		entryCtx := logging.WithTaskName(ctx, en.TaskName)
		entryCtx, span := e.tracer.StartEntrySpan(entryCtx, en.ID, en.TaskName, en.ProjectID)

		task, ok := tasksByID[en.TaskID]
		if !ok || task.RemoteID == "" {
			failErr := errors.NewError(errors.CodeRemote,
				fmt.Sprintf("task %q has no remote id", en.TaskName), nil)
			report.Failures = append(report.Failures, Failure{EntryID: en.ID, TaskName: en.TaskName, Err: failErr})
			span.EndWithError(failErr)
			continue
		}

		req := e.entryRequest(en, task)

		if en.RemoteID == "" {
			span.SetOperation("create")
			remoteID, err := e.billing.CreateTimeEntry(entryCtx, req)
			if err != nil {
				if errors.Is(err, errors.ErrRemoteAuth) {
					span.EndWithError(err)
					return err
				}
				report.Failures = append(report.Failures, Failure{EntryID: en.ID, TaskName: en.TaskName, Err: err})
				e.logger.WarnContext(entryCtx, "entry rejected", "error", err)
				span.EndWithError(err)
				continue
			}
			if err := e.entries.MarkSynced(entryCtx, en.ID, remoteID); err != nil {
				span.EndWithError(err)
				return err
			}
			span.SetRemoteID(remoteID)
			report.Created++
		} else {
			// Amended entry: the remote record exists, bring it up to date.
			span.SetOperation("update")
			if err := e.billing.UpdateTimeEntry(entryCtx, en.RemoteID, req); err != nil {
				if errors.Is(err, errors.ErrRemoteAuth) {
					span.EndWithError(err)
					return err
				}
				report.Failures = append(report.Failures, Failure{EntryID: en.ID, TaskName: en.TaskName, Err: err})
				e.logger.WarnContext(entryCtx, "entry update rejected", "error", err)
				span.EndWithError(err)
				continue
			}
			if err := e.entries.MarkSynced(entryCtx, en.ID, en.RemoteID); err != nil {
				span.EndWithError(err)
				return err
			}
			span.SetRemoteID(en.RemoteID)
			report.Updated++
		}

		span.End()
	}

	return nil
}

// reopenSynced marks every synced entry unsynced again while keeping its
// remote id, so the normal push walk re-sends it as an update. An entry
// whose update is then rejected simply stays unsynced and is retried on
// the next run.
func (e *Engine) reopenSynced(ctx context.Context) error {
	all, err := e.entries.ListAll(ctx)
	if err != nil {
		return err
	}

	reopened := 0
	for _, en := range all {
		if !en.IsSynced() {
			continue
		}
		if err := e.entries.MarkUnsynced(ctx, en.ID); err != nil {
			return err
		}
		reopened++
	}

	if reopened > 0 {
		e.logger.InfoContext(ctx, "re-flagged synced entries for update", "entries", reopened)
	}
	return nil
}

// retractEntries deletes remote time entries whose local counterparts
// were popped after syncing.
func (e *Engine) retractEntries(ctx context.Context, report *Report) {
	tombstones, err := e.tombstones.List(ctx)
	if err != nil {
		report.Failures = append(report.Failures, Failure{Err: err})
		return
	}

	for _, ts := range tombstones {
		if err := e.billing.DeleteTimeEntry(ctx, ts.RemoteID); err != nil {
			report.Failures = append(report.Failures, Failure{EntryID: ts.EntryID, Err: err})
			continue
		}
		if err := e.tombstones.Remove(ctx, ts.EntryID); err != nil {
			report.Failures = append(report.Failures, Failure{EntryID: ts.EntryID, Err: err})
			continue
		}
		report.Retracted++
		e.logger.InfoContext(ctx, "retracted remote entry", "remote_id", ts.RemoteID)
	}
}

// retractTasks deletes remote tasks whose local counterparts were
// deleted, then drops the parked local record.
func (e *Engine) retractTasks(ctx context.Context, report *Report) {
	deleted, err := e.tasks.Deleted(ctx)
	if err != nil {
		report.Failures = append(report.Failures, Failure{Err: err})
		return
	}

	for _, task := range deleted {
		if err := e.billing.DeleteTask(ctx, task.RemoteID); err != nil {
			report.Failures = append(report.Failures, Failure{TaskName: task.Name, Err: err})
			continue
		}
		if err := e.tasks.Purge(ctx, task.ID); err != nil {
			report.Failures = append(report.Failures, Failure{TaskName: task.Name, Err: err})
			continue
		}
		report.Retracted++
		e.logger.InfoContext(ctx, "retracted remote task", "task", task.Name)
	}
}

// taskIndex returns all tasks keyed by local id.
func (e *Engine) taskIndex(ctx context.Context) (map[string]*entry.Task, error) {
	tasks, err := e.tasks.List(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*entry.Task, len(tasks))
	for _, t := range tasks {
		index[t.ID] = t
	}
	return index, nil
}

// entryRequest builds the remote submission for an entry. Notes are
// prefixed with the task name so the remote side stays readable without
// the local log.
func (e *Engine) entryRequest(en *entry.TimeEntry, task *entry.Task) ports.TimeEntryRequest {
	notes := task.PrettyName()
	if en.Notes != "" {
		notes += ": " + en.Notes
	}
	return ports.TimeEntryRequest{
		ProjectID: en.ProjectID,
		TaskID:    task.RemoteID,
		Hours:     en.Hours(),
		Notes:     notes,
		Date:      en.StartTime,
	}
}
