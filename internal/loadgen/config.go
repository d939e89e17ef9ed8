package loadgen

import (
	"time"

	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/scoring"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Assignments int           // Number of assignments to drive through the lifecycle
	GroupShare  float64       // Fraction of assignments assessing a group, 0..1
	ReopenEvery int           // Reopen and resubmit every Nth assignment; 0 disables
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for the run report; empty skips it
	Verbose     bool          // Log every failure
}

// Scenario is one generated assignment and the draft it will be scored with.
type Scenario struct {
	Index   int           `json:"index"`
	Kind    criteria.Kind `json:"kind"`
	Request createRequest `json:"request"`
	Draft   model.Draft   `json:"draft"`
	Reopen  bool          `json:"reopen"`
}

// Outcome is what the service returned for a scenario.
type Outcome struct {
	Scenario     Scenario      `json:"scenario"`
	AssignmentID string        `json:"assignment_id"`
	Record       model.Record  `json:"record"`
	History      int           `json:"history"`
	Err          string        `json:"error,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// createRequest mirrors the POST /assignments body.
type createRequest struct {
	AssessorID string        `json:"assessor_id"`
	CaseStudy  string        `json:"case_study"`
	Subject    model.Subject `json:"subject"`
}

// Stats holds run statistics.
type Stats struct {
	Generated   int
	Completed   int
	Failed      int
	Skipped     int
	Reopened    int
	Verified    int
	Mismatched  int
	BandCounts  map[scoring.Band]int
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	MeanLatency time.Duration
}
