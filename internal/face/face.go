// Package face turns an angle snapshot and tracker readings into the ordered
// draw list a renderer needs. It does no drawing itself.
package face

import (
	"fmt"
	"strings"

	"github.com/signalsfoundry/orrery/model"
)

// Mode selects the asset set.
type Mode int

const (
	// Colour is the interactive, full-colour face.
	Colour Mode = iota
	// Ambient is the low-power face: dark planet art, no second hand and no
	// overlays.
	Ambient
)

func (m Mode) String() string {
	switch m {
	case Colour:
		return "colour"
	case Ambient:
		return "ambient"
	default:
		return "unknown"
	}
}

// ParseMode maps a config string onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "colour", "color", "interactive", "":
		return Colour, nil
	case "ambient":
		return Ambient, nil
	default:
		return 0, fmt.Errorf("unknown face mode %q", s)
	}
}

// Clock hand names used alongside body IDs in layers.
const (
	HandMinute = "minute"
	HandHour   = "hour"
	HandSecond = "second"
)

// Layer is one hand in draw order.
type Layer struct {
	Hand  string
	Asset string
}

// Placement is a layer with its absolute angle and the rotation relative to
// the previous layer, for renderers that rotate the canvas cumulatively.
type Placement struct {
	Hand  string
	Asset string
	Angle float64
	Delta float64
}

var drawOrder = []string{
	string(model.Mars),
	string(model.Mercury),
	string(model.Venus),
	string(model.Jupiter),
	string(model.Saturn),
	string(model.Uranus),
	string(model.Neptune),
	string(model.Moon),
	HandMinute,
	HandHour,
}

// Pluto has art in both sets but is not part of the draw order.
var colourAssets = map[string]string{
	string(model.Mercury): "mercury_hand_colour",
	string(model.Venus):   "venus_hand_colour",
	string(model.Mars):    "mars_hand_colour",
	string(model.Jupiter): "jupiter_hand_colour",
	string(model.Saturn):  "saturn_hand_colour",
	string(model.Uranus):  "uranus_hand_colour",
	string(model.Neptune): "neptune_hand_colour",
	string(model.Pluto):   "pluto_hand_colour",
	string(model.Moon):    "moon_hand_colour",
	HandMinute:            "minute_hand_colour",
	HandHour:              "earth_hand_colour",
	HandSecond:            "seconds_hand_colour",
}

var ambientAssets = map[string]string{
	string(model.Mercury): "mercury_hand_dark",
	string(model.Venus):   "venus_hand_dark",
	string(model.Mars):    "mars_hand_dark",
	string(model.Jupiter): "jupiter_hand_dark",
	string(model.Saturn):  "saturn_hand_dark",
	string(model.Uranus):  "uranus_hand_dark",
	string(model.Neptune): "neptune_hand_dark",
	string(model.Pluto):   "pluto_hand_white",
	string(model.Moon):    "moon_hand_dark",
	HandMinute:            "minute_hand_white",
	HandHour:              "earth_hand_white",
	HandSecond:            "seconds_hand_white",
}

// Asset returns the art name for hand in mode.
func Asset(mode Mode, hand string) (string, bool) {
	set := colourAssets
	if mode == Ambient {
		set = ambientAssets
	}
	a, ok := set[hand]
	return a, ok
}

// CentreAsset returns the cap drawn over the hand pivot.
func CentreAsset(mode Mode) string {
	if mode == Ambient {
		return "center_image_white"
	}
	return "center_image_colour"
}

// Layers returns the hands for mode in draw order.
func Layers(mode Mode) []Layer {
	hands := append([]string(nil), drawOrder...)
	if mode == Colour {
		hands = append(hands, HandSecond)
	}
	layers := make([]Layer, 0, len(hands))
	for _, h := range hands {
		a, _ := Asset(mode, h)
		layers = append(layers, Layer{Hand: h, Asset: a})
	}
	return layers
}

// Compose places every layer of mode at its angle from snap. Hands missing
// from snap are skipped.
func Compose(snap model.AngleSnapshot, mode Mode) []Placement {
	layers := Layers(mode)
	res := make([]Placement, 0, len(layers))
	prev := 0.0
	for _, l := range layers {
		angle, ok := handAngle(snap, l.Hand)
		if !ok {
			continue
		}
		res = append(res, Placement{
			Hand:  l.Hand,
			Asset: l.Asset,
			Angle: angle,
			Delta: angle - prev,
		})
		prev = angle
	}
	return res
}

func handAngle(snap model.AngleSnapshot, hand string) (float64, bool) {
	switch hand {
	case HandMinute:
		return snap.Minute, true
	case HandHour:
		return snap.Hour, true
	case HandSecond:
		return snap.Second, true
	default:
		return snap.Body(model.BodyID(hand))
	}
}
