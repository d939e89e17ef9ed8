package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/verdict/internal/loadgen"
)

// Default configuration constants.
const (
	defaultAssignments = 1000
	defaultGroupShare  = 0.3
	defaultReopenEvery = 10
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		assignments = flag.Int("assignments", defaultAssignments, "Number of assignments to drive")
		groups      = flag.Float64("groups", defaultGroupShare, "Fraction of group assessments")
		reopen      = flag.Int("reopen", defaultReopenEvery, "Reopen and resubmit every Nth assignment")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Report file")
		logFile     = flag.String("log", "", "Also write logs to this file")
		verbose     = flag.Bool("verbose", false, "Log every failure")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	closeLog, err := loadgen.SetupLogging(*logFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	if *outputFile == "" {
		*outputFile = loadgen.DefaultReportName(time.Now())
	}

	stats, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:     *baseURL,
		Assignments: *assignments,
		GroupShare:  *groups,
		ReopenEvery: *reopen,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
	})
	if err != nil {
		_, _ = os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	if stats.Failed > 0 || stats.Mismatched > 0 {
		os.Exit(2)
	}
}
