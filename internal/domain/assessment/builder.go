// Package assessment assembles persisted records. It is the only place where
// total, band and findings are derived, always from one vector snapshot.
package assessment

import (
	"time"

	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/insight"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/scoring"
)

// Builder derives records from drafts.
type Builder struct {
	catalogs criteria.Set
	engine   *insight.Engine
	now      func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithCatalogs sets the catalogs records are scored against.
func WithCatalogs(set criteria.Set) Option {
	return func(b *Builder) {
		b.catalogs = set
	}
}

// WithEngine sets the insight engine.
func WithEngine(e *insight.Engine) Option {
	return func(b *Builder) {
		b.engine = e
	}
}

// WithClock sets the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder returns a Builder over the default catalogs and rule tables.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		catalogs: criteria.Defaults(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.engine == nil {
		b.engine = insight.NewEngine(insight.WithCatalogs(b.catalogs))
	}
	return b
}

// Catalogs returns the catalogs in use.
func (b *Builder) Catalogs() criteria.Set { return b.catalogs }

// Engine returns the insight engine in use.
func (b *Builder) Engine() *insight.Engine { return b.engine }

// Now reads the builder's clock.
func (b *Builder) Now() time.Time { return b.now() }

// Build packages d scored against catalog. The draft is copied first so later
// changes by the caller cannot skew the derived fields.
func (b *Builder) Build(d model.Draft, catalog *criteria.Catalog) model.Record {
	d = d.Clone()
	r := model.Record{
		Scores:       d.Scores,
		Notes:        d.Notes,
		GeneralNotes: d.GeneralNotes,
		Subject:      model.SubjectRef{Kind: catalog.Kind()},
		UpdatedAt:    b.now(),
	}
	return derive(r, catalog, b.engine)
}

// BuildFor is Build with the catalog selected by kind.
func (b *Builder) BuildFor(d model.Draft, kind criteria.Kind) (model.Record, error) {
	catalog, err := b.catalogs.For(kind)
	if err != nil {
		return model.Record{}, scoring.Invalid("kind", err.Error())
	}
	return b.Build(d, catalog), nil
}

// Recompute re-derives the cached fields of r from its stored scores.
func (b *Builder) Recompute(r model.Record, catalog *criteria.Catalog) model.Record {
	return derive(r.Clone(), catalog, b.engine)
}

// Initial is the NotStarted view of an assignment that has never been saved.
func (b *Builder) Initial(a model.Assignment) (model.Record, error) {
	r, err := b.BuildFor(model.Draft{}, a.Subject.Kind)
	if err != nil {
		return model.Record{}, err
	}
	r.AssignmentID = a.ID
	r.Subject = a.Subject.Ref()
	r.State = model.NotStarted
	r.CreatedAt = a.CreatedAt
	r.UpdatedAt = a.CreatedAt
	return r, nil
}

func derive(r model.Record, catalog *criteria.Catalog, engine *insight.Engine) model.Record {
	if r.Scores == nil {
		r.Scores = scoring.Vector{}
	}
	if r.Notes == nil {
		r.Notes = map[string]string{}
	}
	sum := scoring.Aggregate(r.Scores, catalog)
	findings := engine.EvaluateCatalog(r.Scores, catalog)

	r.TotalScore = sum.Total
	r.MaxTotal = sum.MaxTotal
	r.CompletionPct = sum.CompletionPct
	r.Band = scoring.Classify(sum.Total, sum.MaxTotal)
	r.Reinforcing = findings.Reinforcing
	r.Cautionary = findings.Cautionary
	return r
}
