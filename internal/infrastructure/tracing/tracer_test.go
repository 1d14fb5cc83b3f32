package tracing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewDisabledReturnsNoop(t *testing.T) {
	tracer, err := New(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.provider != nil {
		t.Error("disabled tracer created a provider")
	}

	// No-op spans must still be usable.
	ctx, span := tracer.Start(context.Background(), "test")
	if ctx == nil || span == nil {
		t.Fatal("Start() on noop tracer returned nil")
	}
	span.End()
}

func TestNewUnsupportedExporter(t *testing.T) {
	cfg := Config{Enabled: true, ExporterType: "jaeger", ServiceName: "ttracker", SampleRate: 1.0}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("New() with unsupported exporter succeeded, want error")
	}
}

func TestStdoutExporterEmitsSpans(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := Config{
		Enabled:      true,
		ExporterType: ExporterStdout,
		ServiceName:  "ttracker-test",
		SampleRate:   1.0,
		Output:       buf,
	}

	ctx := context.Background()
	tracer, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	runCtx, runSpan := tracer.StartSyncRunSpan(ctx, 2)
	_, entrySpan := tracer.StartEntrySpan(runCtx, "e-1", "learn_ttracker", "1")
	entrySpan.SetOperation("create")
	entrySpan.SetRemoteID("remote-1")
	entrySpan.End()

	_, failSpan := tracer.StartEntrySpan(runCtx, "e-2", "other", "1")
	failSpan.EndWithError(errors.New("remote unavailable"))

	runSpan.SetCounts(1, 0, 0, 1)
	runSpan.End()

	if err := tracer.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"sync.run", "sync.entry", "entry.remote_id"} {
		if !strings.Contains(out, want) {
			t.Errorf("exported spans missing %q", want)
		}
	}
}
