// Package insight derives narrative findings from the pattern of a score
// vector. Rules are data: each pairs a Condition with a message, and the
// engine walks a per-kind table in declaration order.
package insight

import (
	"strings"

	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/scoring"
)

// Polarity says which list a finding belongs to.
type Polarity string

const (
	Reinforcing Polarity = "reinforcing"
	Cautionary  Polarity = "cautionary"
)

// Rule fires Message when When holds.
type Rule struct {
	ID       string
	Polarity Polarity
	When     Condition
	Message  string
}

// Finding is one fired rule with its message rendered.
type Finding struct {
	Polarity Polarity `json:"polarity"`
	RuleID   string   `json:"rule_id"`
	Text     string   `json:"text"`
}

// Findings holds the rendered messages split by polarity, each list in rule
// declaration order. Lists are never nil so they encode as [].
type Findings struct {
	Reinforcing []string `json:"reinforcing"`
	Cautionary  []string `json:"cautionary"`
}

// Len is the total number of findings.
func (f Findings) Len() int { return len(f.Reinforcing) + len(f.Cautionary) }

// Engine evaluates the rule table selected by subject kind.
type Engine struct {
	catalogs criteria.Set
	tables   map[criteria.Kind][]Rule
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the table used for kind.
func WithRules(kind criteria.Kind, rules []Rule) Option {
	return func(e *Engine) {
		e.tables[kind] = append([]Rule(nil), rules...)
	}
}

// WithCatalogs sets the catalogs used to normalise values to the reference
// scale. Defaults to criteria.Defaults().
func WithCatalogs(set criteria.Set) Option {
	return func(e *Engine) {
		e.catalogs = set
	}
}

// NewEngine builds an engine with the built-in tables.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		catalogs: criteria.Defaults(),
		tables: map[criteria.Kind][]Rule{
			criteria.Individual: IndividualRules(),
			criteria.Group:      GroupRules(),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns a copy of the table for kind.
func (e *Engine) Rules(kind criteria.Kind) []Rule {
	return append([]Rule(nil), e.tables[kind]...)
}

// Match returns every fired rule in declaration order. Unknown kinds match
// nothing.
func (e *Engine) Match(v scoring.Vector, kind criteria.Kind) []Finding {
	catalog, _ := e.catalogs.For(kind)
	return e.match(v, kind, catalog)
}

// Evaluate returns the fired messages split by polarity.
func (e *Engine) Evaluate(v scoring.Vector, kind criteria.Kind) Findings {
	return split(e.Match(v, kind))
}

// EvaluateCatalog evaluates the table for c.Kind(), normalising against c
// rather than the engine's own catalogs.
func (e *Engine) EvaluateCatalog(v scoring.Vector, c *criteria.Catalog) Findings {
	return split(e.match(v, c.Kind(), c))
}

func (e *Engine) match(v scoring.Vector, kind criteria.Kind, catalog *criteria.Catalog) []Finding {
	p := NewProfile(v, catalog)
	r := renderer(p)

	var out []Finding
	for _, rule := range e.tables[kind] {
		if rule.When == nil || !rule.When.Holds(p) {
			continue
		}
		out = append(out, Finding{Polarity: rule.Polarity, RuleID: rule.ID, Text: r.Replace(rule.Message)})
	}
	return out
}

func split(matches []Finding) Findings {
	f := Findings{Reinforcing: []string{}, Cautionary: []string{}}
	for _, m := range matches {
		switch m.Polarity {
		case Reinforcing:
			f.Reinforcing = append(f.Reinforcing, m.Text)
		case Cautionary:
			f.Cautionary = append(f.Cautionary, m.Text)
		}
	}
	return f
}

func renderer(p Profile) *strings.Replacer {
	top, _, _ := p.Top()
	bottom, _, _ := p.Bottom()
	return strings.NewReplacer(TopPlaceholder, top.DisplayName, BottomPlaceholder, bottom.DisplayName)
}
