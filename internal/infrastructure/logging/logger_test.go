package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		check  func(t *testing.T, buf *bytes.Buffer)
	}{
		{
			name: "text format",
			config: Config{
				Level:  LevelInfo,
				Format: FormatText,
			},
			check: func(t *testing.T, buf *bytes.Buffer) {
				if !strings.Contains(buf.String(), "level=INFO") {
					t.Error("expected text format with level=INFO")
				}
			},
		},
		{
			name: "json format",
			config: Config{
				Level:  LevelInfo,
				Format: FormatJSON,
			},
			check: func(t *testing.T, buf *bytes.Buffer) {
				var m map[string]interface{}
				if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
					t.Errorf("expected valid JSON output: %v", err)
				}
				if m["level"] != "INFO" {
					t.Errorf("expected level INFO, got %v", m["level"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.config.Output = buf

			logger := New(tt.config)
			logger.Info("test message")

			tt.check(t, buf)
		})
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: LevelWarn, Format: FormatText, Output: buf})

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("sub-threshold messages were logged: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestContextEnrichment(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: LevelDebug, Format: FormatText, Output: buf})

	ctx := WithSyncRunID(context.Background(), "run-1")
	ctx = WithTaskName(ctx, "learn_ttracker")
	ctx = WithProjectID(ctx, "7")

	logger.InfoContext(ctx, "syncing entry")

	out := buf.String()
	for _, want := range []string{"sync_run_id=run-1", "task=learn_ttracker", "project_id=7"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}

	if got := SyncRunID(ctx); got != "run-1" {
		t.Errorf("SyncRunID() = %q, want %q", got, "run-1")
	}
}
