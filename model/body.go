package model

// BodyID identifies a modelled celestial body.
type BodyID string

const (
	Mercury BodyID = "mercury"
	Venus   BodyID = "venus"
	Earth   BodyID = "earth"
	Mars    BodyID = "mars"
	Jupiter BodyID = "jupiter"
	Saturn  BodyID = "saturn"
	Uranus  BodyID = "uranus"
	Neptune BodyID = "neptune"
	Pluto   BodyID = "pluto"
	Moon    BodyID = "moon"
)

// CycleKind describes how a body's period maps onto the dial.
type CycleKind int

const (
	// CycleAnalog12 treats the period as a 24-hour day shown on a 12-hour
	// analog face, so the hand turns twice per period.
	CycleAnalog12 CycleKind = iota
	// CycleFull turns the hand once per period.
	CycleFull
)

func (c CycleKind) String() string {
	switch c {
	case CycleAnalog12:
		return "analog12"
	case CycleFull:
		return "full"
	default:
		return "unknown"
	}
}

// CelestialBody is an immutable definition of one hand on the face.
type CelestialBody struct {
	ID   BodyID
	Name string

	// Period is the rotation (or synodic) period in seconds. Must be > 0.
	Period float64
	// PhaseOffset is subtracted from the raw angle, in degrees.
	PhaseOffset float64
	Cycle       CycleKind
}

// ClockFields are local wall-clock fields already decomposed by a
// timezone-aware calendar. Hour is 0..23.
type ClockFields struct {
	Hour        int
	Minute      int
	Second      int
	Millisecond int
}

// AngleSnapshot holds every hand angle for one instant, in degrees [0,360).
type AngleSnapshot struct {
	Bodies map[BodyID]float64

	Hour   float64
	Minute float64
	Second float64

	// Sidereal is the Greenwich mean sidereal angle.
	Sidereal float64
}

// Body returns the angle for id and whether it was present.
func (s AngleSnapshot) Body(id BodyID) (float64, bool) {
	v, ok := s.Bodies[id]
	return v, ok
}
