package commands

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, got time.Time)
	}{
		{
			name:  "empty means now",
			input: "",
			check: func(t *testing.T, got time.Time) {
				if !got.IsZero() {
					t.Errorf("expected zero time, got %v", got)
				}
			},
		},
		{
			name:  "full timestamp",
			input: "2026-08-27 09:30",
			check: func(t *testing.T, got time.Time) {
				want := time.Date(2026, 8, 27, 9, 30, 0, 0, time.Local)
				if !got.Equal(want) {
					t.Errorf("expected %v, got %v", want, got)
				}
			},
		},
		{
			name:  "bare time assumes today",
			input: "14:45",
			check: func(t *testing.T, got time.Time) {
				now := time.Now()
				if got.Year() != now.Year() || got.Month() != now.Month() || got.Day() != now.Day() {
					t.Errorf("expected today's date, got %v", got)
				}
				if got.Hour() != 14 || got.Minute() != 45 {
					t.Errorf("expected 14:45, got %02d:%02d", got.Hour(), got.Minute())
				}
			},
		},
		{
			name:    "garbage rejected",
			input:   "not a time",
			wantErr: true,
		},
		{
			name:    "date without time rejected",
			input:   "2026-08-27",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestSplitTimeAndNotes(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantZero  bool
		wantNotes string
	}{
		{
			name:     "no args",
			args:     nil,
			wantZero: true,
		},
		{
			name:      "notes only",
			args:      []string{"fixed", "the", "flaky", "test"},
			wantZero:  true,
			wantNotes: "fixed the flaky test",
		},
		{
			name:      "full timestamp then notes",
			args:      []string{"2026-08-27", "09:30", "standup"},
			wantNotes: "standup",
		},
		{
			name:      "bare time then notes",
			args:      []string{"09:30", "standup"},
			wantNotes: "standup",
		},
		{
			name: "bare time only",
			args: []string{"09:30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at, notes, err := splitTimeAndNotes(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantZero != at.IsZero() {
				t.Errorf("zero time = %v, want %v", at.IsZero(), tt.wantZero)
			}
			if notes != tt.wantNotes {
				t.Errorf("notes = %q, want %q", notes, tt.wantNotes)
			}
		})
	}
}
