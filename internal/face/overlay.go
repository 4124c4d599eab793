package face

import (
	"fmt"

	"github.com/signalsfoundry/orrery/model"
)

// Arc styles.
const (
	StyleGoodWeather = "good_weather"
	StyleBadWeather  = "bad_weather"
	StyleBattery     = "battery"
)

// arcOrigin is twelve o'clock in canvas degrees.
const arcOrigin = 270.0

// Arc is a ring segment in canvas degrees (0 = three o'clock, clockwise).
type Arc struct {
	Start float64
	Sweep float64
	Style string
}

// TrendArc maps a pressure trend onto the outer ring. A rising trend draws
// anticlockwise back to twelve o'clock in the good-weather style, a falling
// trend clockwise from twelve in the bad-weather style. A flat trend has no
// arc.
func TrendArc(trend float32) (Arc, bool) {
	t := float64(trend)
	switch {
	case t > 0:
		return Arc{Start: arcOrigin + t, Sweep: -t, Style: StyleGoodWeather}, true
	case t < 0:
		return Arc{Start: arcOrigin, Sweep: t, Style: StyleBadWeather}, true
	default:
		return Arc{}, false
	}
}

// BatteryArc draws percent of the ring clockwise from twelve o'clock.
func BatteryArc(percent int) Arc {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return Arc{Start: arcOrigin, Sweep: 3.6 * float64(percent), Style: StyleBattery}
}

// AltitudeLabel formats an altitude estimate the way the face displays it:
// the metre value scaled by ten.
func AltitudeLabel(metres int) string {
	return fmt.Sprintf("%dm", 10*metres)
}

// Readings are the tracker outputs and host battery level for one frame.
type Readings struct {
	Trend      float32
	TrendOK    bool
	Altitude   int
	AltitudeOK bool

	// BatteryPercent is nil when the host cannot report it.
	BatteryPercent *int
}

// Frame is everything a renderer needs for one tick.
type Frame struct {
	Mode          Mode
	Hands         []Placement
	Centre        string
	Arcs          []Arc
	AltitudeLabel string
}

// BuildFrame assembles a frame. Overlays (trend, altitude, battery) are only
// part of the colour face.
func BuildFrame(snap model.AngleSnapshot, mode Mode, r Readings) Frame {
	f := Frame{
		Mode:   mode,
		Hands:  Compose(snap, mode),
		Centre: CentreAsset(mode),
	}
	if mode != Colour {
		return f
	}
	if r.AltitudeOK {
		f.AltitudeLabel = AltitudeLabel(r.Altitude)
	}
	if r.TrendOK {
		if arc, ok := TrendArc(r.Trend); ok {
			f.Arcs = append(f.Arcs, arc)
		}
	}
	if r.BatteryPercent != nil {
		f.Arcs = append(f.Arcs, BatteryArc(*r.BatteryPercent))
	}
	return f
}
