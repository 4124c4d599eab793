package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/model"
)

const tracerName = "github.com/signalsfoundry/orrery"

// Resource and span attribute keys.
const (
	AttrFaceMode   = attribute.Key("orrery.face.mode")
	AttrTickMode   = attribute.Key("orrery.tick.mode")
	AttrTimezone   = attribute.Key("orrery.clock.timezone")
	AttrSensor     = attribute.Key("orrery.sensor.enabled")
	AttrFaceTime   = attribute.Key("orrery.tick.time")
	AttrMinute     = attribute.Key("orrery.hand.minute")
	AttrHour       = attribute.Key("orrery.hand.hour")
	AttrArmed      = attribute.Key("orrery.sensor.requested")
	AttrTrackerLen = attribute.Key("orrery.pressure.samples")
)

// TracingConfig governs how tick tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlp
	Endpoint    string // used when Exporter == otlp
	SampleRatio float64

	// Face describes the running face; it is attached to the trace resource.
	Face FaceDescriptor

	// Writer receives stdout exporter output; os.Stdout when nil.
	Writer io.Writer
}

// FaceDescriptor identifies how the face is configured.
type FaceDescriptor struct {
	FaceMode string
	TickMode string
	Timezone string
	Sensor   bool
}

func (d FaceDescriptor) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrSensor.Bool(d.Sensor)}
	if d.FaceMode != "" {
		attrs = append(attrs, AttrFaceMode.String(d.FaceMode))
	}
	if d.TickMode != "" {
		attrs = append(attrs, AttrTickMode.String(d.TickMode))
	}
	if d.Timezone != "" {
		attrs = append(attrs, AttrTimezone.String(d.Timezone))
	}
	return attrs
}

// ApplyEnv overlays ORRERY_TRACING_* environment variables onto cfg.
func (cfg TracingConfig) ApplyEnv() TracingConfig {
	if raw := os.Getenv("ORRERY_TRACING_ENABLED"); raw != "" {
		cfg.Enabled = strings.EqualFold(raw, "true")
	}
	if exporter := os.Getenv("ORRERY_TRACING_EXPORTER"); exporter != "" {
		cfg.Exporter = strings.ToLower(exporter)
	}
	if service := os.Getenv("ORRERY_TRACING_SERVICE_NAME"); service != "" {
		cfg.ServiceName = service
	}
	if endpoint := os.Getenv("ORRERY_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if rawRatio := os.Getenv("ORRERY_TRACING_SAMPLE_RATIO"); rawRatio != "" {
		if parsed, err := strconv.ParseFloat(rawRatio, 64); err == nil && parsed >= 0 && parsed <= 1 {
			cfg.SampleRatio = parsed
		}
	}
	return cfg
}

// InitTracing installs the global tracer provider for tick spans and returns
// a function that flushes and stops it. With tracing disabled it installs a
// noop provider and the returned function does nothing.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debug(ctx, "tick tracing off")
		return func(context.Context) error { return nil }, nil
	}

	tp, err := newTickProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)

	fields := []logging.Field{
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.Float64("sample_ratio", cfg.SampleRatio),
	}
	for _, kv := range cfg.Face.attributes() {
		fields = append(fields, logging.String(string(kv.Key), kv.Value.Emit()))
	}
	log.Info(ctx, "tick tracing on", fields...)
	return tp.Shutdown, nil
}

func newTickProvider(ctx context.Context, cfg TracingConfig) (*sdktrace.TracerProvider, error) {
	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	attrs := append([]attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "orrery"),
	}, cfg.Face.attributes()...)
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	// Ticks are roots, so ParentBased reduces to the ratio sampler.
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

func exporterFromConfig(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout", "":
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(
			stdouttrace.WithWriter(w),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// StartTick opens a span covering one render tick at the given face time.
func StartTick(ctx context.Context, at time.Time) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "orrery.tick",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrFaceTime.String(at.UTC().Format(time.RFC3339Nano))),
	)
}

// AnnotateTick records the tick's hand angles and tracker outcome on span.
func AnnotateTick(span trace.Span, snap model.AngleSnapshot, requested bool, samples int) {
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		AttrMinute.Float64(snap.Minute),
		AttrHour.Float64(snap.Hour),
		AttrArmed.Bool(requested),
		AttrTrackerLen.Int(samples),
	)
	if requested {
		span.AddEvent("pressure sample requested")
	}
}

// ShutdownWithTimeout flushes pending tick spans, giving up after five
// seconds. Failures are logged, not returned.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tick tracing shutdown failed", logging.Err(err))
	}
}
