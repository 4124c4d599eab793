package kb

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/orrery/model"
)

// ErrPrecondition marks a body definition the angle formulas cannot accept.
// It is only ever returned while building a catalog.
var ErrPrecondition = errors.New("precondition violation")

// Catalog is an immutable, validated set of celestial bodies. It is safe for
// concurrent use because nothing mutates it after construction.
type Catalog struct {
	bodies map[model.BodyID]model.CelestialBody
	order  []model.BodyID
}

// Override replaces the period and/or phase offset of one body. Nil fields
// keep the existing value.
type Override struct {
	Period      *float64
	PhaseOffset *float64
}

// DefaultBodies returns the stock body definitions in declaration order.
func DefaultBodies() []model.CelestialBody {
	return []model.CelestialBody{
		{ID: model.Mercury, Name: "Mercury", Period: 5.06701e6, Cycle: model.CycleAnalog12},
		{ID: model.Venus, Name: "Venus", Period: 10.0872e6, Cycle: model.CycleAnalog12},
		{ID: model.Earth, Name: "Earth", Period: 86400, Cycle: model.CycleAnalog12},
		{ID: model.Mars, Name: "Mars", Period: 88775.22, PhaseOffset: 150.3356, Cycle: model.CycleAnalog12},
		{ID: model.Jupiter, Name: "Jupiter", Period: 35733.312, Cycle: model.CycleAnalog12},
		{ID: model.Saturn, Name: "Saturn", Period: 38517.12, Cycle: model.CycleAnalog12},
		{ID: model.Uranus, Name: "Uranus", Period: 62035.2, Cycle: model.CycleAnalog12},
		{ID: model.Neptune, Name: "Neptune", Period: 57974.4, Cycle: model.CycleAnalog12},
		{ID: model.Pluto, Name: "Pluto", Period: 551880, Cycle: model.CycleAnalog12},
		{ID: model.Moon, Name: "Moon", Period: 2551442.87, PhaseOffset: 84.425, Cycle: model.CycleFull},
	}
}

// NewCatalog validates bodies and returns a catalog holding them. It returns
// an error wrapping ErrPrecondition if any period is not strictly positive and
// finite, and a plain error on empty or duplicate IDs.
func NewCatalog(bodies ...model.CelestialBody) (*Catalog, error) {
	c := &Catalog{
		bodies: make(map[model.BodyID]model.CelestialBody, len(bodies)),
		order:  make([]model.BodyID, 0, len(bodies)),
	}
	for _, b := range bodies {
		if b.ID == "" {
			return nil, fmt.Errorf("body with empty ID")
		}
		if _, exists := c.bodies[b.ID]; exists {
			return nil, fmt.Errorf("body with ID %q already exists", b.ID)
		}
		if err := validate(b); err != nil {
			return nil, err
		}
		c.bodies[b.ID] = b
		c.order = append(c.order, b.ID)
	}
	return c, nil
}

// Default returns a catalog of DefaultBodies. The stock constants are known
// good, so a failure here is a programming error.
func Default() *Catalog {
	c, err := NewCatalog(DefaultBodies()...)
	if err != nil {
		panic(err)
	}
	return c
}

func validate(b model.CelestialBody) error {
	if !(b.Period > 0) || math.IsInf(b.Period, 0) {
		return fmt.Errorf("%w: body %q period %v must be positive and finite", ErrPrecondition, b.ID, b.Period)
	}
	if math.IsNaN(b.PhaseOffset) || math.IsInf(b.PhaseOffset, 0) {
		return fmt.Errorf("%w: body %q phase offset %v must be finite", ErrPrecondition, b.ID, b.PhaseOffset)
	}
	return nil
}

// Get returns the body with the given ID.
func (c *Catalog) Get(id model.BodyID) (model.CelestialBody, bool) {
	b, ok := c.bodies[id]
	return b, ok
}

// List returns the bodies in the order they were added.
func (c *Catalog) List() []model.CelestialBody {
	res := make([]model.CelestialBody, 0, len(c.order))
	for _, id := range c.order {
		res = append(res, c.bodies[id])
	}
	return res
}

// Len reports the number of bodies.
func (c *Catalog) Len() int { return len(c.order) }

// WithOverrides returns a new catalog with the given per-body changes applied.
// Unknown IDs are rejected.
func (c *Catalog) WithOverrides(overrides map[model.BodyID]Override) (*Catalog, error) {
	for id := range overrides {
		if _, ok := c.bodies[id]; !ok {
			return nil, fmt.Errorf("body with ID %q not found", id)
		}
	}
	bodies := c.List()
	for i := range bodies {
		o, ok := overrides[bodies[i].ID]
		if !ok {
			continue
		}
		if o.Period != nil {
			bodies[i].Period = *o.Period
		}
		if o.PhaseOffset != nil {
			bodies[i].PhaseOffset = *o.PhaseOffset
		}
	}
	return NewCatalog(bodies...)
}
