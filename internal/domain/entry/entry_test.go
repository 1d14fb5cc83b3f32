package entry

import (
	"testing"
	"time"
)

func TestTimeEntryIsOpen(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		end      *time.Time
		expected bool
	}{
		{"Open entry", nil, true},
		{"Closed entry", &now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &TimeEntry{StartTime: now.Add(-time.Hour), EndTime: tt.end}
			if got := e.IsOpen(); got != tt.expected {
				t.Errorf("IsOpen() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTimeEntryDuration(t *testing.T) {
	now := time.Now()
	oneHourAgo := now.Add(-1 * time.Hour)

	tests := []struct {
		name   string
		entry  *TimeEntry
		minDur time.Duration
		maxDur time.Duration
	}{
		{
			name:   "Open entry measured to now",
			entry:  &TimeEntry{StartTime: oneHourAgo},
			minDur: 59 * time.Minute,
			maxDur: 61 * time.Minute,
		},
		{
			name:   "Closed entry",
			entry:  &TimeEntry{StartTime: oneHourAgo, EndTime: &now},
			minDur: 59 * time.Minute,
			maxDur: 61 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.entry.Duration()
			if d < tt.minDur || d > tt.maxDur {
				t.Errorf("Duration() = %v, want between %v and %v", d, tt.minDur, tt.maxDur)
			}
		})
	}
}

func TestTimeEntryMinutes(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	e := &TimeEntry{StartTime: start, EndTime: &end}
	if got := e.Minutes(); got != 90 {
		t.Errorf("Minutes() = %d, want 90", got)
	}
	if got := e.Hours(); got != 1.5 {
		t.Errorf("Hours() = %f, want 1.5", got)
	}
}

func TestTimeEntryValidate(t *testing.T) {
	start := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	earlier := start.Add(-time.Hour)

	tests := []struct {
		name    string
		entry   TimeEntry
		wantErr bool
	}{
		{
			name:  "Valid closed entry",
			entry: TimeEntry{TaskName: "task_x", ProjectID: "1", StartTime: earlier, EndTime: &start, SyncState: SyncStateUnsynced},
		},
		{
			name:  "Valid open entry",
			entry: TimeEntry{TaskName: "task_x", ProjectID: "1", StartTime: start, SyncState: SyncStateUnsynced},
		},
		{
			name:    "End before start",
			entry:   TimeEntry{TaskName: "task_x", ProjectID: "1", StartTime: start, EndTime: &earlier, SyncState: SyncStateUnsynced},
			wantErr: true,
		},
		{
			name:    "Missing task name",
			entry:   TimeEntry{ProjectID: "1", StartTime: start, SyncState: SyncStateUnsynced},
			wantErr: true,
		},
		{
			name:    "Missing project",
			entry:   TimeEntry{TaskName: "task_x", StartTime: start, SyncState: SyncStateUnsynced},
			wantErr: true,
		},
		{
			name:    "Synced without remote id",
			entry:   TimeEntry{TaskName: "task_x", ProjectID: "1", StartTime: earlier, EndTime: &start, SyncState: SyncStateSynced},
			wantErr: true,
		},
		{
			name:  "Synced with remote id",
			entry: TimeEntry{TaskName: "task_x", ProjectID: "1", StartTime: earlier, EndTime: &start, SyncState: SyncStateSynced, RemoteID: "42"},
		},
		{
			name:    "Open entry with remote id",
			entry:   TimeEntry{TaskName: "task_x", ProjectID: "1", StartTime: start, SyncState: SyncStateUnsynced, RemoteID: "42"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskPrettyName(t *testing.T) {
	task := &Task{Name: "actually_do_some_work"}
	if got := task.PrettyName(); got != "actually do some work" {
		t.Errorf("PrettyName() = %q, want %q", got, "actually do some work")
	}
}
