package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/internal/config"
	"github.com/signalsfoundry/orrery/internal/face"
	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/internal/observability"
	"github.com/signalsfoundry/orrery/internal/persist"
	"github.com/signalsfoundry/orrery/internal/sensor"
	"github.com/signalsfoundry/orrery/timectrl"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults apply when empty)")
	tickMode := flag.String("tick-mode", "", "override tick.mode: realtime, accelerated or wallclock")
	duration := flag.Duration("duration", -1, "override tick.duration; 0 runs until interrupted")
	faceMode := flag.String("face", "", "override face.mode: colour or ambient")
	metricsAddr := flag.String("metrics-addr", "", "override metrics.addr; \"off\" disables the endpoint")
	battery := flag.Int("battery", -1, "battery percentage to draw on the colour face; negative hides it")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logging.NewFromEnv().Error(context.Background(), "failed to load config",
			logging.String("path", *configPath), logging.Err(err))
		os.Exit(1)
	}
	if *tickMode != "" {
		cfg.Tick.Mode = *tickMode
	}
	if *duration >= 0 {
		cfg.Tick.Duration = *duration
	}
	if *faceMode != "" {
		cfg.Face.Mode = *faceMode
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if _, ok := timectrl.ParseMode(cfg.Tick.Mode); !ok {
		logging.NewFromEnv().Error(context.Background(), "invalid tick mode", logging.String("mode", cfg.Tick.Mode))
		os.Exit(2)
	}
	if _, err := face.ParseMode(cfg.Face.Mode); err != nil {
		logging.NewFromEnv().Error(context.Background(), "invalid face mode", logging.Err(err))
		os.Exit(2)
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var batteryPct *int
	if *battery >= 0 {
		batteryPct = battery
	}
	if err := run(ctx, cfg, log, batteryPct); err != nil {
		log.Error(ctx, "orrery exited", logging.Err(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// run wires the face together and drives ticks until the configured duration
// elapses or ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logging.Logger, battery *int) error {
	shutdownTracing, err := observability.InitTracing(ctx, tracingConfig(cfg), log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	var collector *observability.FaceCollector
	if cfg.Metrics.Addr != "off" {
		collector, err = observability.NewFaceCollector(nil)
		if err != nil {
			return err
		}
		metricsSrv := serveMetrics(cfg.Metrics.Addr, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	f, err := newFace(cfg, log, collector, battery)
	if err != nil {
		return err
	}
	defer f.close(context.Background())

	tc := timectrl.NewTimeController(time.Now(), cfg.Tick.Interval, cfg.TickMode())
	tc.AddListener(func(ctx context.Context, now time.Time) {
		f.onTick(ctx, now)
	})

	log.Info(ctx, "starting orrery",
		logging.String("tick_mode", tc.Mode.String()),
		logging.Duration("tick", tc.Tick),
		logging.Duration("duration", cfg.Tick.Duration),
		logging.String("face", f.mode.String()),
		logging.Bool("sensor", f.tracker.HasSensor()),
	)
	err = tc.Run(ctx, cfg.Tick.Duration)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info(context.Background(), "orrery stopped", logging.Int("samples", f.tracker.Len()))
	return err
}

func tracingConfig(cfg *config.Config) observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		Face: observability.FaceDescriptor{
			FaceMode: cfg.FaceMode().String(),
			TickMode: cfg.TickMode().String(),
			Timezone: cfg.Clock.Timezone,
			Sensor:   cfg.Sensor.Enabled,
		},
	}.ApplyEnv()
}

// watchFace holds everything one tick touches.
type watchFace struct {
	log       logging.Logger
	engine    *core.AngleEngine
	tracker   *core.TrendTracker
	baro      *sensor.Barometer
	store     *persist.LastSampleStore
	collector *observability.FaceCollector
	mode      face.Mode
	battery   *int
}

func newFace(cfg *config.Config, log logging.Logger, collector *observability.FaceCollector, battery *int) (*watchFace, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	f := &watchFace{
		log:       log,
		engine:    core.NewAngleEngine(catalog, core.WithLocalClock(core.ZoneClock{Location: loc})),
		collector: collector,
		mode:      cfg.FaceMode(),
		battery:   battery,
	}

	opts := []core.TrendTrackerOption{core.WithArmInterval(cfg.Sensor.ArmIntervalDegrees)}
	if collector != nil {
		opts = append(opts, core.WithTrackerMetrics(collector))
	}
	if !cfg.Sensor.Enabled {
		f.tracker = core.NewTrendTracker(nil, log, opts...)
		return f, nil
	}

	f.baro = sensor.NewBarometer(sensor.Config{
		BaseHPa:    cfg.Sensor.BaseHPa,
		MaxStepHPa: cfg.Sensor.MaxStepHPa,
		Latency:    cfg.Sensor.Latency,
		Seed:       cfg.Sensor.Seed,
	}, log)
	f.tracker = core.NewTrendTracker(f.baro, log, opts...)
	f.baro.SetSink(f.tracker.IngestSample)

	if cfg.Persist.Path != "" {
		f.store = &persist.LastSampleStore{Path: cfg.Persist.Path}
		f.restore(context.Background())
	}
	return f, nil
}

func (f *watchFace) restore(ctx context.Context) {
	s, ok, err := f.store.Load()
	if err != nil {
		f.log.Warn(ctx, "skipping persisted sample", logging.String("path", f.store.Path), logging.Err(err))
		return
	}
	if ok && f.tracker.Restore(s) {
		f.log.Info(ctx, "restored last pressure sample",
			logging.Float64("value_hpa", float64(s.Value)),
			logging.Int64("timestamp", s.Timestamp),
		)
	}
}

// onTick computes one frame at now.
func (f *watchFace) onTick(ctx context.Context, now time.Time) face.Frame {
	started := time.Now()
	ctx, span := observability.StartTick(ctx, now)
	defer span.End()

	snap := f.engine.GetAngles(float64(now.UnixNano()) / 1e9)
	requested := f.tracker.ObserveMinuteAngle(ctx, snap.Minute)
	observability.AnnotateTick(span, snap, requested, f.tracker.Len())

	r := face.Readings{BatteryPercent: f.battery}
	r.Trend, r.TrendOK = f.tracker.CurrentTrend()
	r.Altitude, r.AltitudeOK = f.tracker.CurrentAltitude()
	frame := face.BuildFrame(snap, f.mode, r)

	f.collector.ObserveTick(snap, time.Since(started))
	f.collector.SetReadings(r.Trend, r.TrendOK, r.Altitude, r.AltitudeOK)

	f.log.Debug(ctx, "tick",
		logging.String("time", now.Format(time.RFC3339)),
		logging.Float64("hour", snap.Hour),
		logging.Float64("minute", snap.Minute),
		logging.Float64("second", snap.Second),
		logging.Int("hands", len(frame.Hands)),
		logging.Int("arcs", len(frame.Arcs)),
		logging.String("altitude", frame.AltitudeLabel),
	)
	return frame
}

// close stops the barometer and saves the newest sample when configured.
func (f *watchFace) close(ctx context.Context) {
	if f.baro != nil {
		_ = f.baro.CancelRequest(ctx)
		f.baro.Wait()
	}
	if f.store == nil {
		return
	}
	s, ok := f.tracker.Newest()
	if !ok {
		return
	}
	if err := f.store.Save(s); err != nil {
		f.log.Warn(ctx, "failed to persist last sample", logging.String("path", f.store.Path), logging.Err(err))
		return
	}
	f.log.Info(ctx, "persisted last pressure sample", logging.String("path", f.store.Path))
}

func serveMetrics(addr string, collector *observability.FaceCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
