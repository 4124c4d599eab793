package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController advances time.
type Mode int

const (
	// RealTime advances by Tick on every wall-clock tick of the same length.
	RealTime Mode = iota
	// Accelerated advances by Tick as quickly as the loop can run.
	Accelerated
	// WallClock follows the wall clock, firing on each Tick boundary.
	WallClock
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	case WallClock:
		return "wallclock"
	default:
		return "unknown"
	}
}

// ParseMode maps a config string onto a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "realtime", "real-time":
		return RealTime, true
	case "accelerated":
		return Accelerated, true
	case "wallclock", "wall-clock", "":
		return WallClock, true
	default:
		return 0, false
	}
}

// Listener is invoked once per tick with the tick's time. Listeners run on
// the controller's goroutine, one after another.
type Listener func(ctx context.Context, now time.Time)

// TimeController drives the render tick and notifies registered listeners.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	listeners   []Listener

	// wallNow is overridable in tests.
	wallNow func() time.Time
}

// NewTimeController constructs a controller. In WallClock mode start is
// ignored once Run begins.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	if tick <= 0 {
		tick = time.Second
	}
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
		wallNow:     time.Now,
	}
}

// Now returns the time of the most recent tick.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime overrides the current time.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn Listener) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Run drives ticks until duration has elapsed (in ticked time) or ctx is
// done. A non-positive duration runs until ctx is done. It returns ctx.Err()
// when cancelled and nil when the duration completes.
func (tc *TimeController) Run(ctx context.Context, duration time.Duration) error {
	var elapsed time.Duration
	next, stop := tc.stepper()
	defer stop()
	for {
		if duration > 0 && elapsed >= duration {
			return nil
		}
		now, err := next(ctx)
		if err != nil {
			return err
		}
		elapsed += tc.Tick

		tc.mu.Lock()
		tc.currentTime = now
		listeners := append([]Listener(nil), tc.listeners...)
		tc.mu.Unlock()

		for _, fn := range listeners {
			fn(ctx, now)
		}
	}
}

// Start runs the controller for the specified duration in a separate goroutine.
// It returns a channel that is closed when the controller finishes.
func (tc *TimeController) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tc.Run(context.Background(), duration)
	}()
	return done
}

// stepper returns a function that blocks until the next tick and yields its
// time, plus a func releasing any timer it holds.
func (tc *TimeController) stepper() (func(context.Context) (time.Time, error), func()) {
	tc.mu.Lock()
	if tc.Mode != WallClock {
		tc.currentTime = tc.StartTime
	}
	simTime := tc.currentTime
	tc.mu.Unlock()

	switch tc.Mode {
	case Accelerated:
		return func(ctx context.Context) (time.Time, error) {
			if err := ctx.Err(); err != nil {
				return time.Time{}, err
			}
			simTime = simTime.Add(tc.Tick)
			return simTime, nil
		}, func() {}
	case WallClock:
		return func(ctx context.Context) (time.Time, error) {
			now := tc.wallNow()
			boundary := now.Truncate(tc.Tick).Add(tc.Tick)
			timer := time.NewTimer(boundary.Sub(now))
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return time.Time{}, ctx.Err()
			case <-timer.C:
				return boundary, nil
			}
		}, func() {}
	default:
		ticker := time.NewTicker(tc.Tick)
		return func(ctx context.Context) (time.Time, error) {
			select {
			case <-ctx.Done():
				return time.Time{}, ctx.Err()
			case <-ticker.C:
				simTime = simTime.Add(tc.Tick)
				return simTime, nil
			}
		}, ticker.Stop
	}
}
