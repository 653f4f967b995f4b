package examsim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete proctoring simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting proctoring simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.NumSessions),
		logger.Int("exams", config.NumExams),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate candidate plans
	plans, err := generatePlans(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("plan generation failed: %w", err)
	}

	// Step 3: Drive the sessions concurrently
	if err := driveSessions(ctx, config, plans, stats); err != nil {
		return fmt.Errorf("session driving failed: %w", err)
	}

	// Step 4: Wait for violation events to be persisted
	logger.Get().Info(ctx, "waiting for violation events to be persisted")
	time.Sleep(ProcessingDelay)

	// Step 5: Read back the session documents concurrently
	docs, err := retrieveSessionDocs(ctx, config, plans, stats)
	if err != nil {
		return fmt.Errorf("document retrieval failed: %w", err)
	}

	// Step 6: Get the observer live views
	views, err := retrieveLiveViews(ctx, config, plans, stats)
	if err != nil {
		return fmt.Errorf("live view retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(config, docs, views); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save the generated traffic to file
	if err := savePlansToFile(ctx, config, plans); err != nil {
		logger.Get().Warn(ctx, "failed to save traffic to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// savePlansToFile saves the generated traffic to a JSON file.
func savePlansToFile(ctx context.Context, config *Config, plans []Plan) error {
	if len(plans) == 0 {
		return fmt.Errorf("no plans to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "sim_traffic_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write plans to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, plan := range plans {
		jsonData, err := marshalJSON(plan)
		if err != nil {
			return fmt.Errorf("failed to marshal plan %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write plan %d: %w", i, err)
		}

		// Add comma except for last plan
		if i < len(plans)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "traffic saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var startRate, sessionsPerSecond float64

	if stats.SessionsPlanned > 0 {
		startRate = float64(stats.SessionsStarted) / float64(stats.SessionsPlanned) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		sessionsPerSecond = float64(stats.SessionsStarted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sessionsPlanned", stats.SessionsPlanned),
		logger.Int("sessionsStarted", stats.SessionsStarted),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("sessionsSubmitted", stats.SessionsSubmitted),
		logger.Int("triggersSubmitted", stats.TriggersSubmitted),
		logger.Int("triggersFailed", stats.TriggersFailed),
		logger.Int("samplesSubmitted", stats.SamplesSubmitted),
		logger.Int("samplesFailed", stats.SamplesFailed),
		logger.Int("docsRetrieved", stats.DocsRetrieved),
		logger.Int("liveViewsRetrieved", stats.LiveViewsRetrieved),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("startRate", startRate),
		logger.Float64("sessionsPerSecond", sessionsPerSecond))
}
