package insight

import (
	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/scoring"
)

// ReferenceScale is the per-criterion scale rule thresholds are written on.
const ReferenceScale = 10.0

// Profile is the normalised view of a vector that conditions read. Values of
// catalog criteria are rescaled to ReferenceScale; ids outside the catalog
// keep their raw value; anything absent reads as 0.
type Profile struct {
	values map[string]float64
	order  []criteria.Criterion
}

// NewProfile normalises v against c.
func NewProfile(v scoring.Vector, c *criteria.Catalog) Profile {
	p := Profile{values: make(map[string]float64, len(v))}
	for id := range v {
		p.values[id] = v.Value(id)
	}
	if c == nil {
		return p
	}
	p.order = c.Criteria()
	for _, cr := range p.order {
		p.values[cr.ID] = v.Value(cr.ID) * ReferenceScale / cr.MaxValue
	}
	return p
}

// Value returns the normalised score for id.
func (p Profile) Value(id string) float64 {
	return p.values[id]
}

// Top returns the single highest catalog criterion; ties go to the earliest
// in catalog order.
func (p Profile) Top() (criteria.Criterion, float64, bool) {
	return p.extreme(func(candidate, best float64) bool { return candidate > best })
}

// Bottom returns the single lowest catalog criterion; ties go to the earliest
// in catalog order.
func (p Profile) Bottom() (criteria.Criterion, float64, bool) {
	return p.extreme(func(candidate, best float64) bool { return candidate < best })
}

func (p Profile) extreme(better func(candidate, best float64) bool) (criteria.Criterion, float64, bool) {
	if len(p.order) == 0 {
		return criteria.Criterion{}, 0, false
	}
	best := p.order[0]
	bestVal := p.Value(best.ID)
	for _, cr := range p.order[1:] {
		if v := p.Value(cr.ID); better(v, bestVal) {
			best, bestVal = cr, v
		}
	}
	return best, bestVal, true
}

// Count returns how many catalog criteria satisfy pred.
func (p Profile) Count(pred func(float64) bool) int {
	n := 0
	for _, cr := range p.order {
		if pred(p.Value(cr.ID)) {
			n++
		}
	}
	return n
}

// Condition is a pure predicate over a profile.
type Condition interface {
	Holds(p Profile) bool
}

// AtLeast holds when criterion ID scores >= Threshold.
type AtLeast struct {
	ID        string
	Threshold float64
}

func (c AtLeast) Holds(p Profile) bool { return geq(p.Value(c.ID), c.Threshold) }

// AtMost holds when criterion ID scores <= Threshold.
type AtMost struct {
	ID        string
	Threshold float64
}

func (c AtMost) Holds(p Profile) bool { return leq(p.Value(c.ID), c.Threshold) }

// All holds when every nested condition holds.
type All []Condition

func (c All) Holds(p Profile) bool {
	for _, cond := range c {
		if !cond.Holds(p) {
			return false
		}
	}
	return true
}

// Any holds when at least one nested condition holds.
type Any []Condition

func (c Any) Holds(p Profile) bool {
	for _, cond := range c {
		if cond.Holds(p) {
			return true
		}
	}
	return false
}

// TopAtLeast holds when the single highest criterion scores >= Threshold.
type TopAtLeast struct{ Threshold float64 }

func (c TopAtLeast) Holds(p Profile) bool {
	_, v, ok := p.Top()
	return ok && geq(v, c.Threshold)
}

// BottomAtMost holds when the single lowest criterion scores <= Threshold.
type BottomAtMost struct{ Threshold float64 }

func (c BottomAtMost) Holds(p Profile) bool {
	_, v, ok := p.Bottom()
	return ok && leq(v, c.Threshold)
}

// CountAtLeast holds when at least N criteria score >= Threshold.
type CountAtLeast struct {
	Threshold float64
	N         int
}

func (c CountAtLeast) Holds(p Profile) bool {
	return p.Count(func(v float64) bool { return geq(v, c.Threshold) }) >= c.N
}

// CountAtMost holds when at least N criteria score <= Threshold.
type CountAtMost struct {
	Threshold float64
	N         int
}

func (c CountAtMost) Holds(p Profile) bool {
	return p.Count(func(v float64) bool { return leq(v, c.Threshold) }) >= c.N
}

// Rescaling by value*10/max can land a hair off an integral threshold.
const epsilon = 1e-9

func geq(v, threshold float64) bool { return v >= threshold-epsilon }
func leq(v, threshold float64) bool { return v <= threshold+epsilon }
