// Package scoring turns a per-criterion score vector into an overall total and
// a qualitative performance band.
//
// Everything here is a pure function of its inputs. Aggregation is permissive
// (missing keys count as 0, negatives clamp to 0, values above a criterion's
// maximum are taken as given); ValidateVector is the strict check callers run
// on untrusted input.
package scoring

import (
	"math"

	"github.com/okian/verdict/internal/domain/criteria"
)

const percentScale = 100

// Vector maps Criterion.ID to a raw score. Keys need not cover the catalog
// while drafting.
type Vector map[string]float64

// Value returns the score for id, treating absent and negative values as 0.
func (v Vector) Value(id string) float64 {
	return clampScore(v[id])
}

// Clone returns an independent copy. A nil vector clones to an empty one.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Equal reports whether both vectors hold exactly the same keys and values.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for k, val := range v {
		other, ok := o[k]
		if !ok || other != val {
			return false
		}
	}
	return true
}

// Summary is the aggregate of one vector against one catalog.
type Summary struct {
	Total         float64 `json:"total"`
	MaxTotal      float64 `json:"max_total"`
	CompletionPct float64 `json:"completion_pct"`
}

// Aggregate sums vector over catalog. Keys outside the catalog are ignored.
func Aggregate(v Vector, c *criteria.Catalog) Summary {
	var s Summary
	for _, cr := range c.Criteria() {
		s.Total += v.Value(cr.ID)
		s.MaxTotal += cr.MaxValue
	}
	s.CompletionPct = Percent(s.Total, s.MaxTotal)
	return s
}

// Percent is total/maxTotal*100 clamped to [0, 100]; 0 when maxTotal <= 0.
func Percent(total, maxTotal float64) float64 {
	if maxTotal <= 0 || math.IsNaN(total) {
		return 0
	}
	p := total / maxTotal * percentScale
	return math.Max(0, math.Min(percentScale, p))
}

// IsComplete reports whether every catalog criterion has a value.
func IsComplete(v Vector, c *criteria.Catalog) bool {
	for _, id := range c.IDs() {
		if _, ok := v[id]; !ok {
			return false
		}
	}
	return true
}

// ValidateVector rejects unknown criterion ids and values outside
// [0, MaxValue]. The first offending criterion in key order is reported.
func ValidateVector(v Vector, c *criteria.Catalog) error {
	for _, id := range sortedKeys(v) {
		val := v[id]
		cr, ok := c.Lookup(id)
		switch {
		case !ok:
			return &ValidationError{Field: id, Reason: "unknown criterion"}
		case math.IsNaN(val) || math.IsInf(val, 0):
			return &ValidationError{Field: id, Reason: "score is not a finite number"}
		case val < 0 || val > cr.MaxValue:
			return &ValidationError{Field: id, Reason: outOfRange(cr.MaxValue)}
		}
	}
	return nil
}

func clampScore(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	return x
}
