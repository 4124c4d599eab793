package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFieldsAndCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	ctx := ContextWithCorrelationID(context.Background(), "req-1")
	log.With(String("component", "tracker")).Info(ctx, "sample ingested",
		Float64("value_hpa", 1013.25),
		Int("buffer_len", 3),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"msg":            "sample ingested",
		"component":      "tracker",
		"value_hpa":      1013.25,
		"buffer_len":     float64(3),
		"error":          "boom",
		"correlation_id": "req-1",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Fatalf("log field %q = %v, want %v", k, rec[k], v)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn line missing: %q", out)
	}
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	if id == "" {
		t.Fatalf("expected a generated correlation ID")
	}
	again, id2 := EnsureCorrelationID(ctx)
	if id2 != id || CorrelationIDFromContext(again) != id {
		t.Fatalf("EnsureCorrelationID replaced existing ID: %q -> %q", id, id2)
	}
}

func TestNoopLogger(t *testing.T) {
	log := Noop().With(String("k", "v"))
	log.Error(context.Background(), "dropped")
}
