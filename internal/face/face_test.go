package face

import (
	"testing"

	"github.com/signalsfoundry/orrery/model"
)

func testSnapshot() model.AngleSnapshot {
	return model.AngleSnapshot{
		Bodies: map[model.BodyID]float64{
			model.Mercury: 20,
			model.Venus:   30,
			model.Earth:   40,
			model.Mars:    10,
			model.Jupiter: 50,
			model.Saturn:  60,
			model.Uranus:  70,
			model.Neptune: 80,
			model.Pluto:   90,
			model.Moon:    100,
		},
		Minute: 110,
		Hour:   120,
		Second: 130,
	}
}

func TestLayersDrawOrder(t *testing.T) {
	colour := Layers(Colour)
	ambient := Layers(Ambient)

	if len(colour) != len(ambient)+1 {
		t.Fatalf("colour layers = %d, ambient = %d, want colour to add the second hand", len(colour), len(ambient))
	}
	if colour[0].Hand != string(model.Mars) || colour[len(colour)-1].Hand != HandSecond {
		t.Fatalf("colour order = %v", colour)
	}
	if ambient[len(ambient)-1].Hand != HandHour {
		t.Fatalf("ambient should end with the hour hand, got %v", ambient[len(ambient)-1])
	}
	for _, l := range colour {
		if l.Hand == string(model.Pluto) {
			t.Fatalf("pluto must not be drawn")
		}
		if l.Asset == "" {
			t.Fatalf("layer %q has no asset", l.Hand)
		}
	}
	if colour[9].Asset != "earth_hand_colour" || ambient[9].Asset != "earth_hand_white" {
		t.Fatalf("hour hand assets = %q / %q", colour[9].Asset, ambient[9].Asset)
	}
}

func TestComposeDeltasAccumulateToAngles(t *testing.T) {
	placements := Compose(testSnapshot(), Colour)
	if len(placements) != 11 {
		t.Fatalf("placements = %d, want 11", len(placements))
	}
	sum := 0.0
	for _, p := range placements {
		sum += p.Delta
		if sum != p.Angle {
			t.Fatalf("%s: cumulative rotation %v != angle %v", p.Hand, sum, p.Angle)
		}
	}
	if placements[0].Angle != 10 || placements[1].Delta != 10 {
		t.Fatalf("mars then mercury = %+v, %+v", placements[0], placements[1])
	}
}

func TestTrendArc(t *testing.T) {
	up, ok := TrendArc(16)
	if !ok || up != (Arc{Start: 286, Sweep: -16, Style: StyleGoodWeather}) {
		t.Fatalf("TrendArc(16) = %+v, %v", up, ok)
	}
	down, ok := TrendArc(-40)
	if !ok || down != (Arc{Start: 270, Sweep: -40, Style: StyleBadWeather}) {
		t.Fatalf("TrendArc(-40) = %+v, %v", down, ok)
	}
	if _, ok := TrendArc(0); ok {
		t.Fatalf("flat trend should have no arc")
	}
}

func TestBatteryArcAndAltitudeLabel(t *testing.T) {
	if a := BatteryArc(50); a.Sweep != 180 || a.Start != 270 {
		t.Fatalf("BatteryArc(50) = %+v", a)
	}
	if a := BatteryArc(150); a.Sweep != 360 {
		t.Fatalf("BatteryArc(150) = %+v, want clamped to 360", a)
	}
	if got := AltitudeLabel(12); got != "120m" {
		t.Fatalf("AltitudeLabel(12) = %q, want 120m", got)
	}
}

func TestBuildFrame(t *testing.T) {
	battery := 80
	r := Readings{Trend: 8, TrendOK: true, Altitude: 3, AltitudeOK: true, BatteryPercent: &battery}

	colour := BuildFrame(testSnapshot(), Colour, r)
	if colour.AltitudeLabel != "30m" || len(colour.Arcs) != 2 || colour.Centre != "center_image_colour" {
		t.Fatalf("colour frame = %+v", colour)
	}

	ambient := BuildFrame(testSnapshot(), Ambient, r)
	if ambient.AltitudeLabel != "" || len(ambient.Arcs) != 0 || ambient.Centre != "center_image_white" {
		t.Fatalf("ambient frame should carry no overlays: %+v", ambient)
	}

	unavailable := BuildFrame(testSnapshot(), Colour, Readings{})
	if unavailable.AltitudeLabel != "" || len(unavailable.Arcs) != 0 {
		t.Fatalf("frame without readings = %+v", unavailable)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("ambient"); err != nil || m != Ambient {
		t.Fatalf("ParseMode(ambient) = %v, %v", m, err)
	}
	if m, err := ParseMode(""); err != nil || m != Colour {
		t.Fatalf("ParseMode(\"\") = %v, %v", m, err)
	}
	if _, err := ParseMode("sepia"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
