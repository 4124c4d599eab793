package core

import (
	"context"
	"math"
	"sync"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/model"
)

const (
	// DefaultArmIntervalDegrees is the minute-hand spacing between sensor
	// requests: 36 degrees is six minutes.
	DefaultArmIntervalDegrees = 36.0

	// StandardPressureHPa is sea-level pressure in the barometric formula.
	StandardPressureHPa = 1013.25

	trendGain     = 4
	trendLimit    = 180
	altitudeScale = 4430
	altitudeExp   = 0.190284
)

// TrackerState is the sensor request state of a TrendTracker.
type TrackerState int

const (
	// StateIdle means no sensor request is outstanding.
	StateIdle TrackerState = iota
	// StateAwaitingSample means a request was issued and no new sample has
	// arrived yet.
	StateAwaitingSample
)

func (s TrackerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSample:
		return "awaiting_sample"
	default:
		return "unknown"
	}
}

// SensorCollaborator is the outward half of the one-shot sensor exchange.
// RequestSample arms a single reading; CancelRequest stops further delivery.
// Implementations deliver readings by calling TrendTracker.IngestSample, and
// may do so from any goroutine, including synchronously from RequestSample.
// CancelRequest is called with the tracker's lock held, so it must not call
// back into the tracker.
type SensorCollaborator interface {
	RequestSample(ctx context.Context) error
	CancelRequest(ctx context.Context) error
}

// TrackerMetrics receives tracker events. All methods must be cheap.
type TrackerMetrics interface {
	IncSensorRequests()
	IncSensorCancels()
	IncSensorErrors(op string)
	IncSamples(result string)
	SetBufferLen(n int)
}

// Ingest results reported to TrackerMetrics.IncSamples.
const (
	SampleAccepted  = "accepted"
	SampleDuplicate = "duplicate"
	SampleNoSensor  = "no_sensor"
)

// TrendTracker keeps the recent pressure history and derives the trend and
// altitude shown on the face. Every method takes the same mutex, so sensor
// callbacks and render-tick queries never observe a half-updated buffer.
type TrendTracker struct {
	mu sync.Mutex

	sensor  SensorCollaborator
	log     logging.Logger
	metrics TrackerMetrics

	interval float64
	buf      PressureBuffer
	state    TrackerState

	// armed is the edge flag: true once the minute angle has left an
	// aligned position, cleared when a request is issued.
	armed bool

	lastTimestamp int64
	hasLast       bool
}

// TrendTrackerOption configures a TrendTracker.
type TrendTrackerOption func(*TrendTracker)

// WithTrackerMetrics attaches an optional metrics recorder.
func WithTrackerMetrics(m TrackerMetrics) TrendTrackerOption {
	return func(t *TrendTracker) {
		t.metrics = m
	}
}

// WithArmInterval changes the minute-angle spacing between sensor requests.
// Non-positive values are ignored.
func WithArmInterval(degrees float64) TrendTrackerOption {
	return func(t *TrendTracker) {
		if degrees > 0 {
			t.interval = degrees
		}
	}
}

// NewTrendTracker returns an Idle tracker. A nil sensor puts the tracker in
// no-sensor mode: it never requests samples, ignores ingests, and both
// queries report unavailable.
func NewTrendTracker(sensor SensorCollaborator, log logging.Logger, opts ...TrendTrackerOption) *TrendTracker {
	if log == nil {
		log = logging.Noop()
	}
	t := &TrendTracker{
		sensor:   sensor,
		log:      log,
		interval: DefaultArmIntervalDegrees,
		state:    StateIdle,
		armed:    true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HasSensor reports whether the tracker was built with a sensor.
func (t *TrendTracker) HasSensor() bool { return t.sensor != nil }

// ObserveMinuteAngle feeds the current minute-hand angle from the render
// tick. When the angle sits on an arm-interval boundary and the edge flag is
// set, it issues exactly one sensor request and returns true. Leaving the
// boundary re-arms the flag.
func (t *TrendTracker) ObserveMinuteAngle(ctx context.Context, minuteAngle float64) bool {
	if t.sensor == nil {
		return false
	}

	t.mu.Lock()
	if math.Mod(minuteAngle, t.interval) != 0 {
		t.armed = true
		t.mu.Unlock()
		return false
	}
	if !t.armed {
		t.mu.Unlock()
		return false
	}
	t.armed = false
	if t.state == StateAwaitingSample {
		// The previous request is still outstanding; don't stack another.
		t.mu.Unlock()
		return false
	}
	t.state = StateAwaitingSample
	t.mu.Unlock()

	// Call out without the lock: a collaborator may deliver synchronously.
	if err := t.sensor.RequestSample(ctx); err != nil {
		t.mu.Lock()
		if t.state == StateAwaitingSample {
			t.state = StateIdle
		}
		t.mu.Unlock()
		t.log.Warn(ctx, "pressure sensor request failed",
			logging.Float64("minute_angle", minuteAngle),
			logging.Err(err),
		)
		if t.metrics != nil {
			t.metrics.IncSensorErrors("request")
		}
		return false
	}

	t.log.Debug(ctx, "pressure sensor armed", logging.Float64("minute_angle", minuteAngle))
	if t.metrics != nil {
		t.metrics.IncSensorRequests()
	}
	return true
}

// IngestSample accepts a reading from the sensor collaborator. A sample whose
// timestamp equals the last ingested one is ignored. Otherwise it becomes the
// newest entry (evicting the oldest past capacity), the tracker returns to
// Idle and the sensor is told to stop. It reports whether the sample was
// stored.
func (t *TrendTracker) IngestSample(ctx context.Context, s model.PressureSample) bool {
	if t.sensor == nil {
		if t.metrics != nil {
			t.metrics.IncSamples(SampleNoSensor)
		}
		return false
	}

	t.mu.Lock()
	if t.hasLast && s.Timestamp == t.lastTimestamp {
		t.mu.Unlock()
		if t.metrics != nil {
			t.metrics.IncSamples(SampleDuplicate)
		}
		return false
	}
	_, evicted := t.buf.PushFront(s)
	t.lastTimestamp = s.Timestamp
	t.hasLast = true
	t.state = StateIdle
	n := t.buf.Len()
	// Cancel before releasing the lock: a boundary tick that arms a new
	// request must not be overtaken by this sample's cancel.
	cancelErr := t.sensor.CancelRequest(ctx)
	t.mu.Unlock()

	t.log.Debug(ctx, "pressure sample ingested",
		logging.Float64("value_hpa", float64(s.Value)),
		logging.Int64("timestamp", s.Timestamp),
		logging.Int("buffer_len", n),
		logging.Bool("evicted", evicted),
	)
	if t.metrics != nil {
		t.metrics.IncSamples(SampleAccepted)
		t.metrics.SetBufferLen(n)
	}

	if cancelErr != nil {
		t.log.Warn(ctx, "pressure sensor cancel failed", logging.Err(cancelErr))
		if t.metrics != nil {
			t.metrics.IncSensorErrors("cancel")
		}
		return true
	}
	if t.metrics != nil {
		t.metrics.IncSensorCancels()
	}
	return true
}

// Restore seeds the buffer with a previously persisted sample without
// touching the sensor. It is a no-op in no-sensor mode or when the buffer
// already holds data.
func (t *TrendTracker) Restore(s model.PressureSample) bool {
	if t.sensor == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.buf.Len() > 0 {
		return false
	}
	t.buf.PushFront(s)
	t.lastTimestamp = s.Timestamp
	t.hasLast = true
	return true
}

// CurrentTrend returns 4*(newest-oldest) clamped to [-180,180]. ok is false
// when there is no sensor or no data.
func (t *TrendTracker) CurrentTrend() (trend float32, ok bool) {
	if t.sensor == nil {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	newest, ok := t.buf.Newest()
	if !ok {
		return 0, false
	}
	oldest, _ := t.buf.Oldest()
	change := trendGain * (newest.Value - oldest.Value)
	if change > trendLimit {
		change = trendLimit
	}
	if change < -trendLimit {
		change = -trendLimit
	}
	return change, true
}

// CurrentAltitude estimates altitude in metres from the newest sample using
// the barometric formula. ok is false when there is no sensor or no data.
func (t *TrendTracker) CurrentAltitude() (metres int, ok bool) {
	if t.sensor == nil {
		return 0, false
	}
	t.mu.Lock()
	newest, ok := t.buf.Newest()
	t.mu.Unlock()
	if !ok {
		return 0, false
	}
	return AltitudeMetres(newest.Value), true
}

// AltitudeMetres converts a pressure in hPa to an altitude estimate.
func AltitudeMetres(hpa float32) int {
	ratio := float64(hpa) / StandardPressureHPa
	return int(math.Round((1 - math.Pow(ratio, altitudeExp)) * altitudeScale))
}

// State returns the current request state.
func (t *TrendTracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Len returns the number of buffered samples.
func (t *TrendTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Len()
}

// Samples returns a newest-first copy of the buffer.
func (t *TrendTracker) Samples() []model.PressureSample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Samples()
}

// Newest returns the newest buffered sample.
func (t *TrendTracker) Newest() (model.PressureSample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Newest()
}
