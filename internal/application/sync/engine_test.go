package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jsuresh/ttracker/internal/application/ports"
	"github.com/jsuresh/ttracker/internal/domain/entry"
	"github.com/jsuresh/ttracker/internal/domain/errors"
	"github.com/jsuresh/ttracker/internal/infrastructure/logging"
	"github.com/jsuresh/ttracker/internal/infrastructure/storage"
	"github.com/jsuresh/ttracker/internal/infrastructure/tracing"
)

// fakeBilling records remote state in memory and can be told to reject
// specific entries by notes substring.
type fakeBilling struct {
	projects []ports.RemoteProject
	tasks    map[string][]ports.RemoteTask // by project id

	nextID         int
	createdEntries []ports.TimeEntryRequest
	updatedEntries map[string]ports.TimeEntryRequest
	deletedEntries []string
	deletedTasks   []string

	failCreateFor map[string]error // notes substring -> error
	authErr       error
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{
		tasks:          make(map[string][]ports.RemoteTask),
		updatedEntries: make(map[string]ports.TimeEntryRequest),
		failCreateFor:  make(map[string]error),
	}
}

func (f *fakeBilling) ListProjects(ctx context.Context) ([]ports.RemoteProject, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.projects, nil
}

func (f *fakeBilling) ListTasks(ctx context.Context, projectID string) ([]ports.RemoteTask, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.tasks[projectID], nil
}

func (f *fakeBilling) CreateTask(ctx context.Context, projectID, name string) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	f.nextID++
	id := fmt.Sprintf("rt-%d", f.nextID)
	f.tasks[projectID] = append(f.tasks[projectID], ports.RemoteTask{ID: id, Name: name})
	return id, nil
}

func (f *fakeBilling) CreateTimeEntry(ctx context.Context, req ports.TimeEntryRequest) (string, error) {
	for substr, err := range f.failCreateFor {
		if substr != "" && strings.Contains(req.Notes, substr) {
			return "", err
		}
	}
	f.nextID++
	f.createdEntries = append(f.createdEntries, req)
	return fmt.Sprintf("re-%d", f.nextID), nil
}

func (f *fakeBilling) UpdateTimeEntry(ctx context.Context, remoteID string, req ports.TimeEntryRequest) error {
	f.updatedEntries[remoteID] = req
	return nil
}

func (f *fakeBilling) DeleteTimeEntry(ctx context.Context, remoteID string) error {
	f.deletedEntries = append(f.deletedEntries, remoteID)
	return nil
}

func (f *fakeBilling) DeleteTask(ctx context.Context, remoteID string) error {
	f.deletedTasks = append(f.deletedTasks, remoteID)
	return nil
}

type testEnv struct {
	engine     *Engine
	entries    *storage.EntryRepository
	tasks      *storage.TaskRepository
	tombstones *storage.TombstoneRepository
	billing    *fakeBilling
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := storage.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	if err := conn.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	db, err := conn.DB()
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}

	entries := storage.NewEntryRepository(db)
	tasks := storage.NewTaskRepository(db)
	projects := storage.NewProjectRepository(db)
	tombstones := storage.NewTombstoneRepository(db)

	err = projects.ReplaceAll(context.Background(), []*entry.Project{{ID: "11", Name: "Internal"}})
	if err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	billing := newFakeBilling()
	billing.projects = []ports.RemoteProject{{ID: "11", Name: "Internal"}}

	logger := logging.New(logging.Config{Level: logging.LevelError, Format: logging.FormatText})
	tracer, err := tracing.New(context.Background(), tracing.Config{Enabled: false})
	if err != nil {
		t.Fatalf("tracing.New() error = %v", err)
	}

	return &testEnv{
		engine:     NewEngine(entries, tasks, projects, tombstones, billing, logger, tracer),
		entries:    entries,
		tasks:      tasks,
		tombstones: tombstones,
		billing:    billing,
	}
}

// addEntry appends a closed entry for the named task, creating the task
// on first use.
func (env *testEnv) addEntry(t *testing.T, taskName string, startHour int, notes string) *entry.TimeEntry {
	t.Helper()
	ctx := context.Background()

	task, err := env.tasks.GetOrCreate(ctx, taskName, "11")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	start := time.Date(2026, 8, 27, startHour, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	e := &entry.TimeEntry{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		TaskName:  task.Name,
		ProjectID: "11",
		Notes:     notes,
		StartTime: start,
		EndTime:   &end,
		SyncState: entry.SyncStateUnsynced,
	}
	if err := env.entries.Append(ctx, e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	return e
}

func TestRunCreatesTasksAndEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addEntry(t, "code_review", 9, "backlog")
	env.addEntry(t, "code_review", 11, "")
	env.addEntry(t, "standup_notes", 13, "")

	report, err := env.engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Created != 3 {
		t.Errorf("Created = %d, want 3", report.Created)
	}
	if report.Failed() {
		t.Errorf("unexpected failures: %+v", report.Failures)
	}

	// One remote task per distinct local task, named in pretty form.
	if len(env.billing.tasks["11"]) != 2 {
		t.Fatalf("remote tasks = %+v, want 2", env.billing.tasks["11"])
	}
	if env.billing.tasks["11"][1].Name != "standup notes" {
		t.Errorf("remote task name = %q, want underscores spaced out", env.billing.tasks["11"][1].Name)
	}

	// Notes carry the task name prefix.
	if env.billing.createdEntries[0].Notes != "code review: backlog" {
		t.Errorf("notes = %q", env.billing.createdEntries[0].Notes)
	}
	if env.billing.createdEntries[1].Notes != "code review" {
		t.Errorf("notes without entry notes = %q", env.billing.createdEntries[1].Notes)
	}
	if env.billing.createdEntries[0].Hours != 1.0 {
		t.Errorf("hours = %v, want 1.0", env.billing.createdEntries[0].Hours)
	}

	// Everything local is now marked synced.
	unsynced, err := env.entries.Unsynced(ctx)
	if err != nil {
		t.Fatalf("Unsynced() error = %v", err)
	}
	if len(unsynced) != 0 {
		t.Errorf("%d entries still unsynced", len(unsynced))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addEntry(t, "code_review", 9, "")

	if _, err := env.engine.Run(ctx, Options{}); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	report, err := env.engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if report.Created != 0 || report.Updated != 0 {
		t.Errorf("second run created %d, updated %d, want 0/0", report.Created, report.Updated)
	}
	if len(env.billing.createdEntries) != 1 {
		t.Errorf("%d remote creates total, want 1", len(env.billing.createdEntries))
	}
}

func TestRunMatchesExistingRemoteTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Simulate a previous run that created the remote task but died
	// before recording its id.
	env.billing.tasks["11"] = []ports.RemoteTask{{ID: "rt-99", Name: "code review"}}
	env.addEntry(t, "code_review", 9, "")

	report, err := env.engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Created != 1 {
		t.Errorf("Created = %d, want 1", report.Created)
	}
	if len(env.billing.tasks["11"]) != 1 {
		t.Errorf("a duplicate remote task was created: %+v", env.billing.tasks["11"])
	}

	task, err := env.tasks.Get(ctx, "code_review")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if task.RemoteID != "rt-99" {
		t.Errorf("task remote id = %q, want rt-99", task.RemoteID)
	}
}

// A rejected entry must not stop later entries from syncing, and must
// stay unsynced for the next run.
func TestRunIsolatesEntryFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addEntry(t, "task_a", 9, "first")
	bad := env.addEntry(t, "task_a", 11, "poison")
	env.addEntry(t, "task_a", 13, "third")

	env.billing.failCreateFor["poison"] = errors.NewError(errors.CodeRemote, "rejected", nil)

	report, err := env.engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Created != 2 {
		t.Errorf("Created = %d, want 2", report.Created)
	}
	if len(report.Failures) != 1 || report.Failures[0].EntryID != bad.ID {
		t.Fatalf("Failures = %+v, want one for the poisoned entry", report.Failures)
	}

	unsynced, err := env.entries.Unsynced(ctx)
	if err != nil {
		t.Fatalf("Unsynced() error = %v", err)
	}
	if len(unsynced) != 1 || unsynced[0].ID != bad.ID {
		t.Fatalf("unsynced after run = %+v, want only the rejected entry", unsynced)
	}

	// Next run with the rejection gone picks it up.
	delete(env.billing.failCreateFor, "poison")
	report, err = env.engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if report.Created != 1 || report.Failed() {
		t.Errorf("second run: created %d, failures %+v", report.Created, report.Failures)
	}
}

func TestRunSkipsOpenEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.tasks.GetOrCreate(ctx, "task_a", "11")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	open := &entry.TimeEntry{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		TaskName:  task.Name,
		ProjectID: "11",
		StartTime: time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
		SyncState: entry.SyncStateUnsynced,
	}
	if err := env.entries.Append(ctx, open); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	report, err := env.engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Created != 0 {
		t.Errorf("Created = %d, want 0", report.Created)
	}
	if report.Pending == nil || report.Pending.ID != open.ID {
		t.Errorf("Pending = %+v, want the open entry", report.Pending)
	}
}

func TestRunUpdatesAmendedEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	e := env.addEntry(t, "task_a", 9, "")
	if _, err := env.engine.Run(ctx, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Amending flips the entry back to unsynced while keeping its remote
	// id, so the next run issues an update rather than a create.
	all, err := env.entries.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	remoteID := all[0].RemoteID
	if remoteID == "" {
		t.Fatal("entry has no remote id after first run")
	}
	if err := env.entries.MarkUnsynced(ctx, e.ID); err != nil {
		t.Fatalf("MarkUnsynced() error = %v", err)
	}

	report, err := env.engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Created != 0 || report.Updated != 1 {
		t.Errorf("created %d, updated %d, want 0/1", report.Created, report.Updated)
	}
	if _, ok := env.billing.updatedEntries[remoteID]; !ok {
		t.Errorf("remote entry %s was not updated", remoteID)
	}
}

func TestRunAllResendsSyncedEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addEntry(t, "task_a", 9, "")
	env.addEntry(t, "task_b", 11, "")
	if _, err := env.engine.Run(ctx, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	report, err := env.engine.Run(ctx, Options{All: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Created != 0 || report.Updated != 2 {
		t.Errorf("created %d, updated %d, want 0/2", report.Created, report.Updated)
	}
	if len(env.billing.updatedEntries) != 2 {
		t.Errorf("remote updates = %d, want 2", len(env.billing.updatedEntries))
	}

	// Every entry must be synced again afterwards; a plain re-run sends
	// nothing.
	unsynced, err := env.entries.Unsynced(ctx)
	if err != nil {
		t.Fatalf("Unsynced() error = %v", err)
	}
	if len(unsynced) != 0 {
		t.Errorf("Unsynced() after --all run = %d entries, want 0", len(unsynced))
	}
}

func TestRunRetractsTombstones(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.tombstones.Add(ctx, &entry.Tombstone{
		EntryID:   "local-1",
		RemoteID:  "re-42",
		ProjectID: "11",
		DeletedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	report, err := env.engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Retracted != 1 {
		t.Errorf("Retracted = %d, want 1", report.Retracted)
	}
	if len(env.billing.deletedEntries) != 1 || env.billing.deletedEntries[0] != "re-42" {
		t.Errorf("deleted entries = %v", env.billing.deletedEntries)
	}

	remaining, err := env.tombstones.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d tombstones remain", len(remaining))
	}
}

func TestRunRetractsDeletedTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.tasks.GetOrCreate(ctx, "task_a", "11")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if err := env.tasks.SetRemoteID(ctx, task.ID, "rt-7"); err != nil {
		t.Fatalf("SetRemoteID() error = %v", err)
	}
	if err := env.tasks.MarkDeleted(ctx, task.ID); err != nil {
		t.Fatalf("MarkDeleted() error = %v", err)
	}

	report, err := env.engine.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Retracted != 1 {
		t.Errorf("Retracted = %d, want 1", report.Retracted)
	}
	if len(env.billing.deletedTasks) != 1 || env.billing.deletedTasks[0] != "rt-7" {
		t.Errorf("deleted tasks = %v", env.billing.deletedTasks)
	}

	parked, err := env.tasks.Deleted(ctx)
	if err != nil {
		t.Fatalf("Deleted() error = %v", err)
	}
	if len(parked) != 0 {
		t.Errorf("%d deleted tasks still parked", len(parked))
	}
}

func TestRunAbortsOnAuthFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.addEntry(t, "task_a", 9, "")
	env.billing.authErr = errors.NewError(errors.CodeRemote, "authentication failed", errors.ErrRemoteAuth)

	_, err := env.engine.Run(ctx, Options{})
	if !errors.Is(err, errors.ErrRemoteAuth) {
		t.Fatalf("Run() error = %v, want ErrRemoteAuth", err)
	}
}

func TestRefreshProjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.billing.projects = []ports.RemoteProject{
		{ID: "11", Name: "Internal"},
		{ID: "13", Name: "New Client"},
	}

	projects, err := env.engine.RefreshProjects(ctx)
	if err != nil {
		t.Fatalf("RefreshProjects() error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}
}
