package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/http/api"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/http/site"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/http/swagger"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/http/ws"
	service "github.com/BakulBd/GreenGuardian-sub000/internal/app"
	"github.com/BakulBd/GreenGuardian-sub000/internal/config"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/debounce"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the proctoring engine with configuration options
	svc := service.New(
		service.WithLogger(loggerInstance),
		service.WithCyclePeriod(time.Duration(cfg.CycleSeconds)*time.Second),
		service.WithSampleTTL(time.Duration(cfg.SampleTTLSeconds)*time.Second),
		service.WithDebounce(cfg.DebounceThreshold, cfg.NoFaceGraceCycles),
		service.WithCooldowns(cooldownOverrides(cfg.CooldownSeconds), time.Duration(cfg.DefaultCooldownSeconds)*time.Second),
		service.WithScoring(penaltyOverrides(cfg.PenaltyWeights), cfg.DecayStep, cfg.DecayFloor),
		service.WithReviewThreshold(cfg.ReviewThreshold),
		service.WithMaxWarnings(cfg.MaxWarnings),
		service.WithDefaultExamDuration(time.Duration(cfg.DefaultDurationMinutes)*time.Minute),
		service.WithSubmitRetry(uint(cfg.SubmitRetries), time.Duration(cfg.SubmitRetryDelayMS)*time.Millisecond),
		service.WithSnapshotEvery(cfg.SnapshotEveryCycles),
		service.WithRiskBounds(cfg.RiskLowMin, cfg.RiskMediumMin, cfg.RiskHighMin),
		service.WithRecentEventLimit(cfg.RecentEventLimit),
		service.WithAlertInterval(time.Duration(cfg.AlertIntervalSeconds)*time.Second),
		service.WithNotifyQueueSize(cfg.NotifyQueueSize),
		service.WithEventWriterCount(cfg.EventWriterCount),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithStoreBackend(cfg.StoreBackend, cfg.PostgresURL),
		service.WithRedisPresence(cfg.RedisAddr),
		service.WithPresenceTTL(time.Duration(cfg.PresenceTTLSeconds)*time.Second),
		service.WithAnalysisEndpoint(cfg.AnalysisURL, time.Duration(cfg.AnalysisTimeoutMS)*time.Millisecond),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// API reference under /api-docs and the candidate guide under /docs/
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	// Websocket feed for observer dashboards.
	hub := ws.NewHub(svc, svc.Notifications(ctx))
	hub.Start(ctx)
	ws.NewHandler(hub).Register(mux)

	// Root redirect to the observer console.
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	// Shutdown does not cover hijacked websocket connections; the hub
	// closes them itself.
	hub.Stop()

	loggerInstance.Info(ctx, "server stopped")
}

// cooldownOverrides converts the configured per-condition cooldown
// table from seconds to typed durations.
func cooldownOverrides(src map[string]int) map[debounce.Condition]time.Duration {
	out := make(map[debounce.Condition]time.Duration, len(src))
	for name, secs := range src {
		if secs > 0 {
			out[debounce.Condition(name)] = time.Duration(secs) * time.Second
		}
	}
	return out
}

// penaltyOverrides converts the configured penalty table to typed kinds.
func penaltyOverrides(src map[string]float64) map[model.Kind]float64 {
	out := make(map[model.Kind]float64, len(src))
	for name, weight := range src {
		out[model.Kind(name)] = weight
	}
	return out
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval) // Update every 10 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval) // Update every 5 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	// Update memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	// Update goroutine count
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	// Update GC pause time
	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *service.Service) {
	// Reading stats refreshes the store-owned session and exam gauges;
	// queue and writer gauges are maintained inline by their owners.
	_ = svc.GetStats()
}
