package loadgen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/verdict/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends log output to stdout and, when logFile is set, to that
// file as well. The returned func closes the file.
func SetupLogging(logFile string) (func(), error) {
	var w io.Writer = os.Stdout
	closer := func() {}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return closer, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = func() { _ = file.Close() }
	}
	if err := logger.Init(logger.WithFormat("text"), logger.WithWriter(w)); err != nil {
		closer()
		return func() {}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return closer, nil
}

// DefaultReportName returns a timestamped report filename.
func DefaultReportName(now time.Time) string {
	return "loadgen_report_" + now.Format("20060102_150405") + ".json"
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Verdict Load Generator
======================

Drives generated assessments through create, save, submit and optional
reopen against a running service, then checks every stored record.

Usage:
  loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -assignments int
        Number of assignments to drive (default 1000)
  -groups float
        Fraction of group assessments, 0..1 (default 0.3)
  -reopen int
        Reopen and resubmit every Nth assignment, 0 disables (default 10)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Report file (default: loadgen_report_TIMESTAMP.json)
  -log string
        Also write logs to this file
  -verbose
        Log every failure
  -help
        Show this help message
`)
}
