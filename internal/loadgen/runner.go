package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/logger"
)

const (
	directoryPermission = 0o750
	percentMultiplier   = 100
)

// Run drives generated assignments through the lifecycle and verifies what
// the service returned.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadgen")

	log.Info(ctx, "starting load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("assignments", config.Assignments),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
	)

	client := newHTTPClient(config.BaseURL, config.Timeout)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	catalogs, err := fetchCatalogs(ctx, client)
	if err != nil {
		return stats, fmt.Errorf("catalog retrieval failed: %w", err)
	}

	scenarios, err := generateScenarios(ctx, config, catalogs, stats)
	if err != nil {
		return stats, fmt.Errorf("scenario generation failed: %w", err)
	}

	outcomes := driveScenarios(ctx, config, client, scenarios, stats)

	if err := verifyOutcomes(ctx, config, catalogs, outcomes, stats); err != nil {
		return stats, fmt.Errorf("verification failed: %w", err)
	}

	if config.OutputFile != "" {
		if err := saveReport(ctx, config.OutputFile, outcomes); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	return client.Get(ctx, "/stats", nil)
}

type catalogReply struct {
	Kind     criteria.Kind        `json:"kind"`
	Criteria []criteria.Criterion `json:"criteria"`
}

func fetchCatalogs(ctx context.Context, client *HTTPClient) (map[criteria.Kind]*criteria.Catalog, error) {
	out := map[criteria.Kind]*criteria.Catalog{}
	for _, kind := range []criteria.Kind{criteria.Individual, criteria.Group} {
		var reply catalogReply
		if err := client.Get(ctx, "/catalog/"+string(kind), &reply); err != nil {
			return nil, err
		}
		c, err := criteria.NewCatalog(kind, reply.Criteria)
		if err != nil {
			return nil, err
		}
		out[kind] = c
	}
	return out, nil
}

// driveScenarios runs scenarios on a pool of workers and returns the
// outcomes of those that ran. Scenarios never dispatched because ctx ended
// are counted as skipped.
func driveScenarios(ctx context.Context, config *Config, client *HTTPClient, scenarios []Scenario, stats *Stats) []Outcome {
	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}
	outcomes := make([]Outcome, len(scenarios))
	ran := make([]bool, len(scenarios))

	var (
		failed   int64
		reopened int64
		wg       sync.WaitGroup
	)
	indexChan := make(chan int, workers*2)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexChan {
				o := driveOne(ctx, client, scenarios[idx])
				if o.Err != "" {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(ctx, "scenario failed", logger.Int("index", idx), logger.String("error", o.Err))
					}
				} else if scenarios[idx].Reopen {
					atomic.AddInt64(&reopened, 1)
				}
				outcomes[idx] = o
				ran[idx] = true
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range scenarios {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()
	wg.Wait()

	done := outcomes[:0]
	for i, o := range outcomes {
		if ran[i] {
			done = append(done, o)
		}
	}
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.Reopened = int(atomic.LoadInt64(&reopened))
	stats.Completed = len(done) - stats.Failed
	stats.Skipped = len(scenarios) - len(done)
	return done
}

// driveOne creates, saves and submits one assignment; reopen scenarios are
// reopened and resubmitted unchanged.
func driveOne(ctx context.Context, client *HTTPClient, s Scenario) Outcome {
	start := time.Now()
	o := Outcome{Scenario: s}
	fail := func(err error) Outcome {
		o.Err = err.Error()
		o.Elapsed = time.Since(start)
		return o
	}

	var a model.Assignment
	if err := client.Post(ctx, "/assignments", s.Request, &a); err != nil {
		return fail(err)
	}
	o.AssignmentID = a.ID
	base := "/assignments/" + a.ID

	if err := client.Put(ctx, base+"/record", s.Draft, nil); err != nil {
		return fail(err)
	}
	if err := client.Post(ctx, base+"/submit", nil, &o.Record); err != nil {
		return fail(err)
	}
	if s.Reopen {
		if err := client.Post(ctx, base+"/reopen", nil, nil); err != nil {
			return fail(err)
		}
		if err := client.Post(ctx, base+"/submit", nil, &o.Record); err != nil {
			return fail(err)
		}
	}

	var history []model.LifecycleEvent
	if err := client.Get(ctx, base+"/history", &history); err != nil {
		return fail(err)
	}
	o.History = len(history)
	o.Elapsed = time.Since(start)
	return o
}

// saveReport writes the outcomes as a JSON array.
func saveReport(ctx context.Context, filename string, outcomes []Outcome) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Get().Info(ctx, "report saved", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.Generated > 0 {
		successRate = float64(stats.Completed) / float64(stats.Generated) * percentMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Completed) / stats.Duration.Seconds()
	}

	fields := []logger.Field{
		logger.Int("generated", stats.Generated),
		logger.Int("completed", stats.Completed),
		logger.Int("failed", stats.Failed),
		logger.Int("skipped", stats.Skipped),
		logger.Int("reopened", stats.Reopened),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Duration("duration", stats.Duration),
		logger.Duration("meanLatency", stats.MeanLatency),
		logger.Float64("successRate", successRate),
		logger.Float64("assignmentsPerSecond", perSecond),
	}
	for band, n := range stats.BandCounts {
		fields = append(fields, logger.Int("band_"+band.String(), n))
	}
	logger.Get().Info(ctx, "final statistics", fields...)
}
