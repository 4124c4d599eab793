package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/orrery/model"
)

// FaceCollector bundles Prometheus metrics for the tick loop and pressure
// tracker and exposes them over HTTP. It satisfies core.TrackerMetrics.
type FaceCollector struct {
	gatherer prometheus.Gatherer

	BodyAngles    *prometheus.GaugeVec
	TickDurations prometheus.Histogram
	Ticks         prometheus.Counter

	SensorRequests *prometheus.CounterVec
	Samples        *prometheus.CounterVec
	BufferLen      prometheus.Gauge
	Trend          prometheus.Gauge
	Altitude       prometheus.Gauge
	ReadingsUp     *prometheus.GaugeVec
}

// NewFaceCollector registers metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewFaceCollector(reg prometheus.Registerer) (*FaceCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	angles, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orrery_hand_angle_degrees",
		Help: "Most recent hand angle in degrees, labeled by hand.",
	}, []string{"hand"}), "orrery_hand_angle_degrees")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orrery_ticks_total",
		Help: "Total number of render ticks processed.",
	}), "orrery_ticks_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orrery_tick_duration_seconds",
		Help:    "Time spent computing one render tick.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
	}), "orrery_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_sensor_requests_total",
		Help: "Sensor collaborator calls, labeled by operation and result.",
	}, []string{"op", "result"}), "orrery_sensor_requests_total")
	if err != nil {
		return nil, err
	}

	samples, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orrery_pressure_samples_total",
		Help: "Pressure samples offered to the tracker, labeled by result.",
	}, []string{"result"}), "orrery_pressure_samples_total")
	if err != nil {
		return nil, err
	}

	bufferLen, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_pressure_buffer_samples",
		Help: "Current number of samples in the pressure ring.",
	}), "orrery_pressure_buffer_samples")
	if err != nil {
		return nil, err
	}

	trend, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_pressure_trend",
		Help: "Clamped pressure trend in [-180,180].",
	}), "orrery_pressure_trend")
	if err != nil {
		return nil, err
	}

	altitude, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orrery_altitude_metres",
		Help: "Barometric altitude estimate in metres.",
	}), "orrery_altitude_metres")
	if err != nil {
		return nil, err
	}

	up, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orrery_reading_available",
		Help: "1 when the tracker reading is available, 0 otherwise.",
	}, []string{"reading"}), "orrery_reading_available")
	if err != nil {
		return nil, err
	}

	return &FaceCollector{
		gatherer:       gatherer,
		BodyAngles:     angles,
		TickDurations:  durations,
		Ticks:          ticks,
		SensorRequests: requests,
		Samples:        samples,
		BufferLen:      bufferLen,
		Trend:          trend,
		Altitude:       altitude,
		ReadingsUp:     up,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *FaceCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick records one tick's snapshot and how long it took.
func (c *FaceCollector) ObserveTick(snap model.AngleSnapshot, took time.Duration) {
	if c == nil {
		return
	}
	for id, a := range snap.Bodies {
		c.BodyAngles.WithLabelValues(string(id)).Set(a)
	}
	c.BodyAngles.WithLabelValues("hour").Set(snap.Hour)
	c.BodyAngles.WithLabelValues("minute").Set(snap.Minute)
	c.BodyAngles.WithLabelValues("second").Set(snap.Second)
	c.BodyAngles.WithLabelValues("sidereal").Set(snap.Sidereal)
	c.Ticks.Inc()
	c.TickDurations.Observe(took.Seconds())
}

// SetReadings records the tracker's query results for this tick.
func (c *FaceCollector) SetReadings(trend float32, trendOK bool, altitude int, altitudeOK bool) {
	if c == nil {
		return
	}
	c.ReadingsUp.WithLabelValues("trend").Set(boolGauge(trendOK))
	c.ReadingsUp.WithLabelValues("altitude").Set(boolGauge(altitudeOK))
	if trendOK {
		c.Trend.Set(float64(trend))
	}
	if altitudeOK {
		c.Altitude.Set(float64(altitude))
	}
}

// IncSensorRequests implements core.TrackerMetrics.
func (c *FaceCollector) IncSensorRequests() {
	if c == nil {
		return
	}
	c.SensorRequests.WithLabelValues("request", "ok").Inc()
}

// IncSensorCancels implements core.TrackerMetrics.
func (c *FaceCollector) IncSensorCancels() {
	if c == nil {
		return
	}
	c.SensorRequests.WithLabelValues("cancel", "ok").Inc()
}

// IncSensorErrors implements core.TrackerMetrics; op is request or cancel.
func (c *FaceCollector) IncSensorErrors(op string) {
	if c == nil {
		return
	}
	c.SensorRequests.WithLabelValues(op, "error").Inc()
}

// IncSamples implements core.TrackerMetrics.
func (c *FaceCollector) IncSamples(result string) {
	if c == nil {
		return
	}
	c.Samples.WithLabelValues(result).Inc()
}

// SetBufferLen implements core.TrackerMetrics.
func (c *FaceCollector) SetBufferLen(n int) {
	if c == nil {
		return
	}
	c.BufferLen.Set(float64(n))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
