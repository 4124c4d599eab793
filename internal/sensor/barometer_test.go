package sensor

import (
	"context"
	"testing"
	"time"

	"github.com/signalsfoundry/orrery/core"
	"github.com/signalsfoundry/orrery/model"
)

func TestBarometerDeliversOncePerRequest(t *testing.T) {
	b := NewBarometer(Config{BaseHPa: 1000, MaxStepHPa: 0.5, Latency: time.Millisecond, Seed: 1}, nil)
	got := make(chan model.PressureSample, 4)
	b.SetSink(func(_ context.Context, s model.PressureSample) bool {
		got <- s
		return true
	})

	ctx := context.Background()
	if err := b.RequestSample(ctx); err != nil {
		t.Fatalf("RequestSample: %v", err)
	}
	// Folded into the pending request.
	if err := b.RequestSample(ctx); err != nil {
		t.Fatalf("RequestSample: %v", err)
	}
	b.Wait()

	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(got))
	}
	s := <-got
	if s.Value < 999.5 || s.Value > 1000.5 {
		t.Fatalf("value = %v, want within one step of 1000", s.Value)
	}
}

func TestBarometerCancelBeforeDelivery(t *testing.T) {
	b := NewBarometer(Config{Latency: time.Hour}, nil)
	delivered := false
	b.SetSink(func(context.Context, model.PressureSample) bool {
		delivered = true
		return true
	})

	ctx := context.Background()
	if err := b.RequestSample(ctx); err != nil {
		t.Fatalf("RequestSample: %v", err)
	}
	if err := b.CancelRequest(ctx); err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}
	b.Wait()
	if delivered {
		t.Fatalf("cancelled request must not deliver")
	}
}

func TestBarometerTimestampsStrictlyIncrease(t *testing.T) {
	b := NewBarometer(Config{Latency: 0}, nil)
	fixed := time.Unix(1700000000, 0)
	b.now = func() time.Time { return fixed }

	var last int64
	for i := 0; i < 5; i++ {
		b.mu.Lock()
		s := b.nextSampleLocked()
		b.mu.Unlock()
		if i > 0 && s.Timestamp <= last {
			t.Fatalf("timestamp %d did not increase past %d", s.Timestamp, last)
		}
		last = s.Timestamp
	}
}

func TestBarometerDrivesTracker(t *testing.T) {
	ctx := context.Background()
	b := NewBarometer(Config{BaseHPa: 1013.25, Latency: time.Millisecond}, nil)
	tr := core.NewTrendTracker(b, nil)
	b.SetSink(tr.IngestSample)

	if !tr.ObserveMinuteAngle(ctx, 0) {
		t.Fatalf("expected the tracker to arm the barometer")
	}
	b.Wait()

	if tr.Len() != 1 {
		t.Fatalf("tracker Len() = %d, want 1", tr.Len())
	}
	if tr.State() != core.StateIdle {
		t.Fatalf("tracker State() = %v, want idle", tr.State())
	}
	if alt, ok := tr.CurrentAltitude(); !ok || alt != 0 {
		t.Fatalf("altitude = (%d, %v), want (0, true)", alt, ok)
	}
}
