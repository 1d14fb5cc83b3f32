package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jsuresh/ttracker/internal/domain/entry"
)

func TestFormatterSuccess(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithColor(false))

	if err := f.Success("saved %d entries", 3); err != nil {
		t.Fatalf("Success() error = %v", err)
	}
	if got := buf.String(); got != "✓ saved 3 entries\n" {
		t.Errorf("output = %q", got)
	}
}

func TestFormatterColorize(t *testing.T) {
	var buf bytes.Buffer

	colored := NewFormatter(WithWriter(&buf), WithColor(true))
	if got := colored.Colorize("hi", ColorRed); got != "\033[31mhi\033[0m" {
		t.Errorf("colored = %q", got)
	}

	plain := NewFormatter(WithWriter(&buf), WithColor(false))
	if got := plain.Colorize("hi", ColorRed); got != "hi" {
		t.Errorf("plain = %q", got)
	}
}

func TestFormatterTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithColor(false))

	err := f.Table(TableData{
		Columns: []TableColumn{
			{Header: "TASK"},
			{Header: "TIME", Align: AlignRight},
		},
		Rows: [][]string{
			{"code_review", "1:30"},
			{"standup", "0:15"},
		},
	})
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "TASK") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "code_review") || !strings.Contains(lines[2], "1:30") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"", FormatText, false},
		{"yaml", FormatText, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{90 * time.Minute, "1:30"},
		{15 * time.Minute, "0:15"},
		{8 * time.Hour, "8:00"},
		{61 * time.Second, "0:01"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestEntryRowMarkers(t *testing.T) {
	start := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	open := &entry.TimeEntry{TaskName: "task_a", ProjectID: "11", StartTime: start}
	row := EntryRow(open)
	if row[0] != "*" {
		t.Errorf("open entry marker = %q, want *", row[0])
	}
	if row[4] != "..." {
		t.Errorf("open entry end = %q, want ...", row[4])
	}

	synced := &entry.TimeEntry{
		TaskName: "task_a", ProjectID: "11",
		StartTime: start, EndTime: &end,
		SyncState: entry.SyncStateSynced, RemoteID: "re-1",
	}
	row = EntryRow(synced)
	if row[0] != " " {
		t.Errorf("closed entry marker = %q, want blank", row[0])
	}
	if row[6] != "(synced)" {
		t.Errorf("sync cell = %q, want (synced)", row[6])
	}
	if row[5] != "1:00" {
		t.Errorf("duration cell = %q, want 1:00", row[5])
	}
}
