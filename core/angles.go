package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
)

// LocalTimeDecomposer splits an epoch instant into local wall-clock fields.
// The host supplies it; the engine never converts time zones itself.
type LocalTimeDecomposer interface {
	Decompose(epochMillis int64) model.ClockFields
}

// ZoneClock decomposes instants in a fixed location. A nil Location means UTC.
type ZoneClock struct {
	Location *time.Location
}

// Decompose implements LocalTimeDecomposer.
func (z ZoneClock) Decompose(epochMillis int64) model.ClockFields {
	loc := z.Location
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(epochMillis).In(loc)
	return model.ClockFields{
		Hour:        t.Hour(),
		Minute:      t.Minute(),
		Second:      t.Second(),
		Millisecond: t.Nanosecond() / int(time.Millisecond),
	}
}

// AngleEngine maps a UTC instant onto hand angles for every catalogued body.
// It holds no mutable state and is safe for concurrent use.
type AngleEngine struct {
	bodies []model.CelestialBody
	clock  LocalTimeDecomposer
}

// AngleEngineOption configures an AngleEngine.
type AngleEngineOption func(*AngleEngine)

// WithLocalClock sets the calendar used for the hour/minute/second hands.
func WithLocalClock(d LocalTimeDecomposer) AngleEngineOption {
	return func(e *AngleEngine) {
		if d != nil {
			e.clock = d
		}
	}
}

// NewAngleEngine builds an engine over the catalog's bodies. The catalog has
// already validated every period, so the engine never checks them again.
func NewAngleEngine(catalog *kb.Catalog, opts ...AngleEngineOption) *AngleEngine {
	if catalog == nil {
		catalog = kb.Default()
	}
	e := &AngleEngine{
		bodies: catalog.List(),
		clock:  ZoneClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetAngles returns the snapshot for utcSeconds, asking the engine's local
// clock for the wall-clock hand fields.
func (e *AngleEngine) GetAngles(utcSeconds float64) model.AngleSnapshot {
	ms := int64(math.Floor(utcSeconds * 1000))
	return e.AnglesAt(utcSeconds, e.clock.Decompose(ms))
}

// AnglesAt is GetAngles with the clock fields supplied by the caller.
func (e *AngleEngine) AnglesAt(utcSeconds float64, clock model.ClockFields) model.AngleSnapshot {
	snap := model.AngleSnapshot{
		Bodies: make(map[model.BodyID]float64, len(e.bodies)),
	}
	for _, b := range e.bodies {
		snap.Bodies[b.ID] = BodyAngle(b, utcSeconds)
	}
	snap.Hour, snap.Minute, snap.Second = ClockHandAngles(clock)
	snap.Sidereal = SiderealAngle(utcSeconds)
	return snap
}

// BodyAngle returns the hand angle of b at utcSeconds in [0,360).
// b.Period must be strictly positive.
func BodyAngle(b model.CelestialBody, utcSeconds float64) float64 {
	frac := math.Mod(utcSeconds, b.Period) / b.Period
	var raw float64
	switch b.Cycle {
	case model.CycleFull:
		raw = 360 * frac
	default:
		raw = math.Mod(24*frac, 12) * 30
	}
	return NormalizeDegrees(raw - b.PhaseOffset)
}

// ClockHandAngles returns the hour, minute and second hand angles.
func ClockHandAngles(c model.ClockFields) (hour, minute, second float64) {
	minute = float64(c.Minute) * 6
	second = (float64(c.Second) + float64(c.Millisecond)/1000) * 6
	hour = float64(c.Hour%12)*30 + float64(c.Minute)/2
	return NormalizeDegrees(hour), NormalizeDegrees(minute), NormalizeDegrees(second)
}

// SiderealAngle returns the Greenwich mean sidereal angle in degrees.
func SiderealAngle(utcSeconds float64) float64 {
	whole := math.Floor(utcSeconds)
	t := time.Unix(int64(whole), 0).UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// JDay only takes whole seconds; add the remainder back as a day fraction.
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	jd += (utcSeconds - whole) / 86400
	return NormalizeDegrees(satellite.ThetaG_JD(jd) * 180 / math.Pi)
}

// NormalizeDegrees folds a into [0,360).
func NormalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	// -tiny + 360 rounds to 360.
	if a >= 360 {
		a = 0
	}
	return a
}
