// Package criteria holds the fixed, ordered list of competencies a subject is
// scored against.
//
// A Catalog is immutable once built and safe to share between goroutines.
// Records reference criteria by ID, so a catalog must not change while
// assessments scored against it are still open.
package criteria

import (
	"fmt"
	"strings"
)

// Kind selects the subject variant a catalog (and rule table) applies to.
type Kind string

const (
	Individual Kind = "individual"
	Group      Kind = "group"
)

// ParseKind accepts "individual" or "group" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Individual:
		return Individual, nil
	case Group:
		return Group, nil
	}
	return "", fmt.Errorf("%w: unknown subject kind %q", ErrInvalidKind, s)
}

// Criterion is one scorable competency dimension.
type Criterion struct {
	ID          string  `json:"id" yaml:"id"`
	DisplayName string  `json:"display_name" yaml:"display_name"`
	MaxValue    float64 `json:"max_value" yaml:"max_value"`
}

// Catalog is an ordered, validated set of criteria for one subject kind.
type Catalog struct {
	kind     Kind
	criteria []Criterion
	index    map[string]int
}

// NewCatalog validates and freezes the given criteria. IDs must be non-empty
// and unique, and every MaxValue must be positive.
func NewCatalog(kind Kind, list []Criterion) (*Catalog, error) {
	if kind != Individual && kind != Group {
		return nil, fmt.Errorf("%w: unknown subject kind %q", ErrInvalidKind, kind)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s catalog has no criteria", ErrInvalidCatalog, kind)
	}

	c := &Catalog{
		kind:     kind,
		criteria: make([]Criterion, len(list)),
		index:    make(map[string]int, len(list)),
	}
	for i, cr := range list {
		cr.ID = strings.TrimSpace(cr.ID)
		switch {
		case cr.ID == "":
			return nil, fmt.Errorf("%w: %s criterion #%d has an empty id", ErrInvalidCatalog, kind, i)
		case cr.MaxValue <= 0:
			return nil, fmt.Errorf("%w: %s criterion %q has max_value %v", ErrInvalidCatalog, kind, cr.ID, cr.MaxValue)
		}
		if _, dup := c.index[cr.ID]; dup {
			return nil, fmt.Errorf("%w: %s criterion %q is declared twice", ErrInvalidCatalog, kind, cr.ID)
		}
		if cr.DisplayName == "" {
			cr.DisplayName = cr.ID
		}
		c.criteria[i] = cr
		c.index[cr.ID] = i
	}
	return c, nil
}

// Kind returns the subject kind this catalog scores.
func (c *Catalog) Kind() Kind { return c.kind }

// Len returns the number of criteria.
func (c *Catalog) Len() int { return len(c.criteria) }

// Criteria returns a copy of the criteria in declaration order.
func (c *Catalog) Criteria() []Criterion {
	out := make([]Criterion, len(c.criteria))
	copy(out, c.criteria)
	return out
}

// Lookup finds a criterion by ID.
func (c *Catalog) Lookup(id string) (Criterion, bool) {
	i, ok := c.index[id]
	if !ok {
		return Criterion{}, false
	}
	return c.criteria[i], true
}

// IDs returns criterion IDs in declaration order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.criteria))
	for i, cr := range c.criteria {
		ids[i] = cr.ID
	}
	return ids
}

// MaxTotal is the sum of every criterion's MaxValue.
func (c *Catalog) MaxTotal() float64 {
	var total float64
	for _, cr := range c.criteria {
		total += cr.MaxValue
	}
	return total
}

// Set pairs the individual and group catalogs loaded for a process.
type Set struct {
	Individual *Catalog
	Group      *Catalog
}

// For returns the catalog for kind.
func (s Set) For(kind Kind) (*Catalog, error) {
	switch kind {
	case Individual:
		if s.Individual != nil {
			return s.Individual, nil
		}
	case Group:
		if s.Group != nil {
			return s.Group, nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown subject kind %q", ErrInvalidKind, kind)
	}
	return nil, fmt.Errorf("%w: no %s catalog loaded", ErrInvalidCatalog, kind)
}
