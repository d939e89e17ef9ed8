package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/scoring"
	"github.com/okian/verdict/pkg/logger"
)

// verifyOutcomes recomputes each submitted record locally and counts any
// disagreement with what the service stored. Failed scenarios are skipped.
func verifyOutcomes(ctx context.Context, config *Config, catalogs map[criteria.Kind]*criteria.Catalog, outcomes []Outcome, stats *Stats) error {
	if len(outcomes) == 0 {
		return fmt.Errorf("no outcomes to verify")
	}
	stats.BandCounts = map[scoring.Band]int{}

	var latency time.Duration
	for _, o := range outcomes {
		if o.Err != "" {
			continue
		}
		latency += o.Elapsed
		stats.BandCounts[o.Record.Band]++

		if err := verifyOne(o, catalogs[o.Scenario.Kind]); err != nil {
			stats.Mismatched++
			logger.Get().Warn(ctx, "record mismatch",
				logger.AssignmentID(o.AssignmentID),
				logger.Error(err),
			)
			continue
		}
		stats.Verified++
	}
	if stats.Completed > 0 {
		stats.MeanLatency = latency / time.Duration(stats.Completed)
	}
	if config.Verbose {
		logger.Get().Info(ctx, "verification completed",
			logger.Int("verified", stats.Verified),
			logger.Int("mismatched", stats.Mismatched),
		)
	}
	return nil
}

func verifyOne(o Outcome, catalog *criteria.Catalog) error {
	r := o.Record
	if r.State != model.Submitted {
		return fmt.Errorf("state %s, want %s", r.State, model.Submitted)
	}
	want := scoring.Aggregate(o.Scenario.Draft.Scores, catalog)
	if r.TotalScore != want.Total || r.MaxTotal != want.MaxTotal {
		return fmt.Errorf("total %.1f/%.1f, want %.1f/%.1f", r.TotalScore, r.MaxTotal, want.Total, want.MaxTotal)
	}
	if band := scoring.Classify(want.Total, want.MaxTotal); r.Band != band {
		return fmt.Errorf("band %s, want %s", r.Band, band)
	}
	if r.SubmittedAt == nil {
		return fmt.Errorf("submitted_at missing")
	}
	// Events are written asynchronously, so history may lag but never exceed.
	if want := expectedEvents(o.Scenario); o.History > want {
		return fmt.Errorf("history has %d events, want at most %d", o.History, want)
	}
	return nil
}

// expectedEvents is save + submit, plus reopen + submit when reopened.
func expectedEvents(s Scenario) int {
	if s.Reopen {
		return 4
	}
	return 2
}
