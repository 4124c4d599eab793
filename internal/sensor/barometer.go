// Package sensor provides a simulated barometer that speaks the tracker's
// one-shot request/cancel protocol.
package sensor

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/signalsfoundry/orrery/internal/logging"
	"github.com/signalsfoundry/orrery/model"
)

// Sink receives delivered samples. core.TrendTracker.IngestSample fits.
type Sink func(ctx context.Context, s model.PressureSample) bool

// Config controls the simulated readings.
type Config struct {
	// BaseHPa is the starting pressure.
	BaseHPa float64
	// MaxStepHPa bounds the random walk between consecutive readings.
	MaxStepHPa float64
	// Latency is how long a request takes to produce its reading.
	Latency time.Duration
	// Seed makes the walk reproducible.
	Seed uint64
}

// Barometer delivers one reading per request on its own goroutine, the way
// a platform sensor callback arrives on a host thread.
type Barometer struct {
	cfg Config
	log logging.Logger
	now func() time.Time

	mu      sync.Mutex
	sink    Sink
	rng     *rand.Rand
	current float64
	lastTS  int64
	pending *request
	wg      sync.WaitGroup
}

type request struct {
	id     string
	cancel context.CancelFunc
}

// NewBarometer returns an idle barometer. Call SetSink before the first
// request.
func NewBarometer(cfg Config, log logging.Logger) *Barometer {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.BaseHPa == 0 {
		cfg.BaseHPa = 1013.25
	}
	return &Barometer{
		cfg:     cfg,
		log:     log.With(logging.String("component", "barometer")),
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		current: cfg.BaseHPa,
	}
}

// SetSink sets where readings are delivered.
func (b *Barometer) SetSink(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = s
}

// RequestSample arms a single reading. A request made while one is pending
// is folded into the pending one.
func (b *Barometer) RequestSample(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending != nil {
		return nil
	}

	id := logging.NewCorrelationID()
	deliverCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	deliverCtx = logging.ContextWithCorrelationID(deliverCtx, id)
	b.pending = &request{id: id, cancel: cancel}

	b.log.Debug(deliverCtx, "barometer request armed", logging.Duration("latency", b.cfg.Latency))

	b.wg.Add(1)
	go b.deliver(deliverCtx, id)
	return nil
}

// CancelRequest drops any pending request. Readings already handed to the
// sink are unaffected.
func (b *Barometer) CancelRequest(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return nil
	}
	b.pending.cancel()
	b.log.Debug(ctx, "barometer request cancelled", logging.String("request_id", b.pending.id))
	b.pending = nil
	return nil
}

// Wait blocks until every delivery goroutine has finished.
func (b *Barometer) Wait() {
	b.wg.Wait()
}

func (b *Barometer) deliver(ctx context.Context, id string) {
	defer b.wg.Done()

	timer := time.NewTimer(b.cfg.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	b.mu.Lock()
	if b.pending == nil || b.pending.id != id {
		b.mu.Unlock()
		return
	}
	b.pending = nil
	s := b.nextSampleLocked()
	sink := b.sink
	b.mu.Unlock()

	if sink == nil {
		b.log.Warn(ctx, "barometer reading dropped: no sink")
		return
	}
	// Deliver outside the lock: the sink calls back into CancelRequest.
	sink(ctx, s)
}

func (b *Barometer) nextSampleLocked() model.PressureSample {
	step := (b.rng.Float64()*2 - 1) * b.cfg.MaxStepHPa
	b.current += step

	ts := b.now().UnixNano()
	if ts <= b.lastTS {
		ts = b.lastTS + 1
	}
	b.lastTS = ts
	return model.PressureSample{Value: float32(b.current), Timestamp: ts}
}
