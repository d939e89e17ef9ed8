package loadgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/scoring"
	"github.com/okian/verdict/pkg/logger"
)

const randomFloatDivisor = 1000000

// Performance profiles on a 0..1 share of each criterion's maximum.
type profile struct {
	min, span float64
}

var profiles = []profile{
	{0.3, 0.4}, // average, most common
	{0.3, 0.4}, // average
	{0.7, 0.2}, // high
	{0.9, 0.1}, // elite, rare
	{0.0, 0.3}, // low
	{0.6, 0.2}, // mid-high
	{0.2, 0.2}, // mid-low
	{0.0, 1.0}, // anything
}

// getRandomFloat returns a random float64 in [0, 1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateScenarios builds config.Assignments scenarios against the given
// catalogs. Scores are whole points so totals compare exactly.
func generateScenarios(ctx context.Context, config *Config, catalogs map[criteria.Kind]*criteria.Catalog, stats *Stats) ([]Scenario, error) {
	logger.Get().Info(ctx, "generating scenarios", logger.Int("assignments", config.Assignments))

	out := make([]Scenario, config.Assignments)
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		kind := criteria.Individual
		if getRandomFloat() < config.GroupShare {
			kind = criteria.Group
		}
		catalog, ok := catalogs[kind]
		if !ok {
			return nil, fmt.Errorf("no %s catalog", kind)
		}
		out[i] = Scenario{
			Index:   i,
			Kind:    kind,
			Request: newCreateRequest(i, kind),
			Draft:   randomDraft(catalog),
			Reopen:  config.ReopenEvery > 0 && i%config.ReopenEvery == 0,
		}
	}
	stats.Generated = len(out)
	return out, nil
}

func newCreateRequest(i int, kind criteria.Kind) createRequest {
	subject := model.Subject{
		ID:   uuid.NewString(),
		Kind: kind,
		Name: fmt.Sprintf("subject-%d", i),
	}
	if kind == criteria.Group {
		n := 2 + randomInt(5)
		for j := 0; j < n; j++ {
			subject.MemberIDs = append(subject.MemberIDs, uuid.NewString())
		}
	}
	return createRequest{
		AssessorID: fmt.Sprintf("assessor-%d", i%7),
		CaseStudy:  "load run",
		Subject:    subject,
	}
}

// randomDraft scores every criterion from one randomly chosen profile.
func randomDraft(catalog *criteria.Catalog) model.Draft {
	p := profiles[randomInt(len(profiles))]
	scores := scoring.Vector{}
	for _, c := range catalog.Criteria() {
		v := math.Round((p.min + getRandomFloat()*p.span) * c.MaxValue)
		scores[c.ID] = math.Min(math.Max(v, 0), c.MaxValue)
	}
	return model.Draft{Scores: scores, GeneralNotes: "generated"}
}
