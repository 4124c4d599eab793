package timectrl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestTimeControllerSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, RealTime)

	newNow := start.Add(42 * time.Second)
	tc.SetTime(newNow)

	if got := tc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
}

func TestTimeControllerStartUpdatesNow(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 5*time.Millisecond, Accelerated)

	done := tc.Start(15 * time.Millisecond)
	<-done

	expected := start.Add(15 * time.Millisecond)
	if got := tc.Now(); !got.Equal(expected) {
		t.Fatalf("Now() = %v, want %v", got, expected)
	}
}

func TestTimeControllerNotifiesListenersInOrder(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, Accelerated)

	var got []string
	tc.AddListener(func(_ context.Context, now time.Time) {
		got = append(got, "a@"+now.Format("15:04:05"))
	})
	tc.AddListener(func(_ context.Context, now time.Time) {
		got = append(got, "b@"+now.Format("15:04:05"))
	})

	if err := tc.Run(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"a@00:00:01", "b@00:00:01", "a@00:00:02", "b@00:00:02"}
	if len(got) != len(want) {
		t.Fatalf("listener calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("listener calls = %v, want %v", got, want)
		}
	}
}

func TestTimeControllerRealTimeCancel(t *testing.T) {
	tc := NewTimeController(time.Now(), time.Millisecond, RealTime)

	var mu sync.Mutex
	ticks := 0
	ctx, cancel := context.WithCancel(context.Background())
	tc.AddListener(func(context.Context, time.Time) {
		mu.Lock()
		defer mu.Unlock()
		ticks++
		if ticks == 3 {
			cancel()
		}
	})

	err := tc.Run(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if ticks != 3 {
		t.Fatalf("ticks = %d, want 3", ticks)
	}
}

func TestTimeControllerWallClockAlignsToBoundaries(t *testing.T) {
	const tick = 10 * time.Millisecond
	tc := NewTimeController(time.Time{}, tick, WallClock)

	var seen []time.Time
	tc.AddListener(func(_ context.Context, now time.Time) {
		seen = append(seen, now)
	})

	if err := tc.Run(context.Background(), 3*tick); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("ticks = %d, want 3", len(seen))
	}
	for i, ts := range seen {
		if !ts.Truncate(tick).Equal(ts) {
			t.Fatalf("tick %d at %v is not on a %s boundary", i, ts, tick)
		}
		if i > 0 && !ts.After(seen[i-1]) {
			t.Fatalf("tick %d at %v does not follow %v", i, ts, seen[i-1])
		}
	}
	if got := tc.Now(); !got.Equal(seen[2]) {
		t.Fatalf("Now() = %v, want last tick %v", got, seen[2])
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"realtime":    RealTime,
		"accelerated": Accelerated,
		"wallclock":   WallClock,
		"":            WallClock,
	}
	for in, want := range cases {
		got, ok := ParseMode(in)
		if !ok || got != want {
			t.Fatalf("ParseMode(%q) = (%v, %v), want (%v, true)", in, got, ok, want)
		}
	}
	if _, ok := ParseMode("warp"); ok {
		t.Fatalf("ParseMode(warp) should fail")
	}
}
