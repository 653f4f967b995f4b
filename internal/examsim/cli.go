package examsim

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "sim_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the proctoring simulator.
func ShowHelp() {
	os.Stdout.WriteString(`GreenGuardian Proctoring Simulator
==================================

A concurrent load tool that drives simulated candidate sessions through
the proctoring API: lifecycle, anti-cheat triggers, camera samples and
submission, then cross-checks session documents and live views.

Usage:
  go run cmd/exam-sim/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of candidate sessions to simulate (default 200)
  -exams int
        Number of exams the sessions spread across (default 3)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for the generated traffic (default: sim_traffic_TIMESTAMP.json)
  -log string
        Log file for simulation output (default: sim_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/exam-sim/main.go

  # A large cohort across ten exams
  go run cmd/exam-sim/main.go -sessions 2000 -exams 10 -workers 16

  # Verbose run against a staging host
  go run cmd/exam-sim/main.go -verbose -url http://staging:9080
`)
}
