package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.Info(context.Background(), "star constructed",
		Int("grid_size", 1000),
		Float64("equatorial_velocity", 2024.5),
		String("band", "400-700nm"),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "star constructed" {
		t.Fatalf("msg = %v, want star constructed", rec["msg"])
	}
	if rec["grid_size"] != float64(1000) {
		t.Fatalf("grid_size = %v, want 1000", rec["grid_size"])
	}
	if rec["band"] != "400-700nm" {
		t.Fatalf("band = %v, want 400-700nm", rec["band"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "dropped")
	log.Warn(context.Background(), "kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestEnsureRunIDIsStable(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" {
		t.Fatalf("EnsureRunID returned empty id")
	}
	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id {
		t.Fatalf("second EnsureRunID = %q, want %q", id2, id)
	}
	if RunIDFromContext(ctx2) != id {
		t.Fatalf("RunIDFromContext = %q, want %q", RunIDFromContext(ctx2), id)
	}
}

func TestWithRunLoggerAnnotates(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	ctx, log := WithRunLogger(context.Background(), base)
	log.Info(ctx, "batch done")

	if !strings.Contains(buf.String(), RunIDFromContext(ctx)) {
		t.Fatalf("log line %q missing run id", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if LoggerFromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger on empty context")
	}
	ctx := ContextWithLogger(context.Background(), nil)
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("expected noop logger to be stored")
	}
}
