package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/model"
)

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := StartTick(context.Background(), time.Unix(0, 0))
	if span.SpanContext().IsValid() {
		t.Fatalf("expected noop span when tracing is disabled")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingStdoutExportsTickSpan(t *testing.T) {
	var buf bytes.Buffer
	cfg := TracingConfig{
		Enabled:     true,
		ServiceName: "orrery-test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Face:        FaceDescriptor{FaceMode: "ambient", TickMode: "wallclock", Timezone: "UTC", Sensor: true},
		Writer:      &buf,
	}
	shutdown, err := InitTracing(context.Background(), cfg, logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	t.Cleanup(func() {
		_, _ = InitTracing(context.Background(), TracingConfig{}, nil)
	})

	_, span := StartTick(context.Background(), time.Unix(946728000, 0))
	if !span.SpanContext().IsValid() {
		t.Fatalf("expected a recording span")
	}
	AnnotateTick(span, model.AngleSnapshot{Minute: 36, Hour: 3}, true, 4)
	span.End()

	ShutdownWithTimeout(context.Background(), shutdown, nil)
	out := buf.String()
	for _, want := range []string{
		"orrery.tick",
		string(AttrFaceMode), "ambient",
		string(AttrTickMode), "wallclock",
		string(AttrMinute),
		string(AttrArmed),
		"pressure sample requested",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in exported span, got %q", want, out)
		}
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ORRERY_TRACING_ENABLED", "true")
	t.Setenv("ORRERY_TRACING_EXPORTER", "OTLP")
	t.Setenv("ORRERY_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("ORRERY_TRACING_SAMPLE_RATIO", "0.25")

	cfg := TracingConfig{ServiceName: "orrery", Exporter: "stdout", SampleRatio: 1}.ApplyEnv()
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.Endpoint != "collector:4317" || cfg.SampleRatio != 0.25 {
		t.Fatalf("ApplyEnv = %+v", cfg)
	}
	if cfg.ServiceName != "orrery" {
		t.Fatalf("service name changed unexpectedly: %q", cfg.ServiceName)
	}
}

func TestShutdownWithTimeoutNil(t *testing.T) {
	ShutdownWithTimeout(context.Background(), nil, nil)
}

func TestAnnotateTickSkipsNoopSpan(t *testing.T) {
	if _, err := InitTracing(context.Background(), TracingConfig{}, nil); err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := StartTick(context.Background(), time.Unix(0, 0))
	AnnotateTick(span, model.AngleSnapshot{}, false, 0)
	span.End()
}
