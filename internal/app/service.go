// Package service provides the core business service that implements
// the dependencies required by the HTTP API: the session registry, the
// shared proctoring components and their lifecycle.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/analysis"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/mq/notify"
	workerpool "github.com/BakulBd/GreenGuardian-sub000/internal/adapters/mq/worker"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/presence"
	repository "github.com/BakulBd/GreenGuardian-sub000/internal/adapters/repository"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/repository/postgres"
	"github.com/BakulBd/GreenGuardian-sub000/internal/config"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/debounce"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/dedupe"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/live"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/scoring"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/session"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/violation"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
)

// Default service configuration constants. These mirror the component
// defaults so an unconfigured service behaves like its parts.
const (
	defaultDebounceThreshold = 3
	defaultNoFaceGrace       = 3
	defaultReviewThreshold   = 50
	defaultSnapshotEvery     = 4
	defaultDecayStep         = 0.15
	defaultDecayFloor        = 0.5
	defaultExamDuration      = 60 * time.Minute
	defaultNotifyQueueSize   = 4096
	defaultWriterQueueSize   = 4096
	defaultDedupeSize        = 100_000
	defaultSweepInterval     = 30 * time.Second
)

// Service implements the API dependencies for the proctoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store         repository.Store
	writers       *workerpool.Pool
	notifications notify.Queue
	observer      *live.Service
	tracker       presence.Tracker
	analyzer      analysis.Analyzer
	deduper       dedupe.Deduper
	classifier    *violation.Classifier
	scorer        *scoring.Engine

	// Session registry: one runtime per non-terminal session
	sessions map[string]*session.Runtime

	// Configuration
	cyclePeriod       time.Duration
	sampleTTL         time.Duration
	debounceThreshold int
	noFaceGrace       int
	cooldowns         map[debounce.Condition]time.Duration
	defaultCooldown   time.Duration
	penaltyWeights    map[model.Kind]float64
	decayStep         float64
	decayFloor        float64
	reviewThreshold   int
	maxWarnings       int
	examDuration      time.Duration
	submitAttempts    uint
	submitRetryDelay  time.Duration
	snapshotEvery     int
	riskLowMin        int
	riskMediumMin     int
	riskHighMin       int
	recentLimit       int
	alertInterval     time.Duration
	notifyQueueSize   int
	writerCount       int
	writerQueueSize   int
	dedupeSize        int
	storeBackend      string
	postgresURL       string
	redisAddr         string
	presenceTTL       time.Duration
	analysisURL       string
	analysisTimeout   time.Duration
	sweepInterval     time.Duration

	// State
	started bool
	baseCtx context.Context
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCyclePeriod sets the detection cycle period for new sessions.
func WithCyclePeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cyclePeriod = d
		}
	}
}

// WithSampleTTL bounds how old the newest sample may be before the
// camera stream counts as lost.
func WithSampleTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sampleTTL = d
		}
	}
}

// WithDebounce sets the consecutive-cycle confirmation threshold and
// the extra no-face grace cycles.
func WithDebounce(threshold, noFaceGrace int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.debounceThreshold = threshold
		}
		if noFaceGrace >= 0 {
			s.noFaceGrace = noFaceGrace
		}
	}
}

// WithCooldowns sets per-condition cooldown overrides and the fallback
// window for conditions without one.
func WithCooldowns(overrides map[debounce.Condition]time.Duration, fallback time.Duration) Option {
	return func(s *Service) {
		for cond, d := range overrides {
			if d > 0 {
				s.cooldowns[cond] = d
			}
		}
		if fallback > 0 {
			s.defaultCooldown = fallback
		}
	}
}

// WithScoring overlays base penalty weights and sets the decay curve.
func WithScoring(weights map[model.Kind]float64, step, floor float64) Option {
	return func(s *Service) {
		for kind, w := range weights {
			s.penaltyWeights[kind] = w
		}
		if step >= 0 && step < 1 {
			s.decayStep = step
		}
		if floor > 0 && floor <= 1 {
			s.decayFloor = floor
		}
	}
}

// WithReviewThreshold flags sessions finalized below this score.
func WithReviewThreshold(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.reviewThreshold = n
		}
	}
}

// WithMaxWarnings sets the warning count that forces submission.
func WithMaxWarnings(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxWarnings = n
		}
	}
}

// WithDefaultExamDuration applies when session creation omits a duration.
func WithDefaultExamDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.examDuration = d
		}
	}
}

// WithSubmitRetry bounds terminal-write attempts and their backoff unit.
func WithSubmitRetry(attempts uint, delay time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.submitAttempts = attempts
		}
		if delay > 0 {
			s.submitRetryDelay = delay
		}
	}
}

// WithSnapshotEvery controls observer thumbnail frequency in cycles;
// zero disables snapshots.
func WithSnapshotEvery(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.snapshotEvery = n
		}
	}
}

// WithRiskBounds sets the lower score bounds of the low, medium and
// high risk buckets.
func WithRiskBounds(lowMin, mediumMin, highMin int) Option {
	return func(s *Service) {
		if lowMin > mediumMin && mediumMin > highMin && highMin > 0 {
			s.riskLowMin = lowMin
			s.riskMediumMin = mediumMin
			s.riskHighMin = highMin
		}
	}
}

// WithRecentEventLimit caps recent event messages per live view row.
func WithRecentEventLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithAlertInterval rate-limits critical alerts to one per interval.
func WithAlertInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.alertInterval = d
		}
	}
}

// WithNotifyQueueSize bounds the pending-notification queue.
func WithNotifyQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.notifyQueueSize = size
		}
	}
}

// WithEventWriterCount sets the number of async violation-event writers.
func WithEventWriterCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.writerCount = count
		}
	}
}

// WithDedupeSize sets the size of the sample idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithStoreBackend selects the session store: memory or postgres with
// its DSN.
func WithStoreBackend(backend, dsn string) Option {
	return func(s *Service) {
		if backend != "" {
			s.storeBackend = backend
		}
		s.postgresURL = dsn
	}
}

// WithRedisPresence enables the Redis presence tracker.
func WithRedisPresence(addr string) Option {
	return func(s *Service) {
		s.redisAddr = addr
	}
}

// WithPresenceTTL sets the liveness window for the online flag.
func WithPresenceTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.presenceTTL = d
		}
	}
}

// WithAnalysisEndpoint enables the post-submission document analysis
// client; an empty url keeps the no-op analyzer.
func WithAnalysisEndpoint(url string, timeout time.Duration) Option {
	return func(s *Service) {
		s.analysisURL = url
		if timeout > 0 {
			s.analysisTimeout = timeout
		}
	}
}

// WithSweepInterval sets how often finished runtimes are reclaimed.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cooldowns:         map[debounce.Condition]time.Duration{},
		penaltyWeights:    map[model.Kind]float64{},
		debounceThreshold: defaultDebounceThreshold,
		noFaceGrace:       defaultNoFaceGrace,
		reviewThreshold:   defaultReviewThreshold,
		snapshotEvery:     defaultSnapshotEvery,
		decayStep:         defaultDecayStep,
		decayFloor:        defaultDecayFloor,
		examDuration:      defaultExamDuration,
		notifyQueueSize:   defaultNotifyQueueSize,
		writerQueueSize:   defaultWriterQueueSize,
		dedupeSize:        defaultDedupeSize,
		storeBackend:      config.StoreBackendMemory,
		sweepInterval:     defaultSweepInterval,
		stopCh:            make(chan struct{}),
		logger:            nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Restarting after Stop needs a fresh stop channel
	select {
	case <-s.stopCh:
		s.stopCh = make(chan struct{})
	default:
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting proctoring service...")

	// Select the session store
	switch s.storeBackend {
	case config.StoreBackendPostgres:
		store, err := postgres.Open(ctx, s.postgresURL)
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "using postgres store")
	default:
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using in-memory store")
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.notifications = notify.NewInMemoryQueue(
		notify.WithCapacity(s.notifyQueueSize),
		notify.WithBufferSize(s.notifyQueueSize),
	)
	s.observer = live.NewService(
		live.WithBounds(s.riskLowMin, s.riskMediumMin, s.riskHighMin),
		live.WithRecentLimit(s.recentLimit),
		live.WithAlertInterval(s.alertInterval),
	)
	s.classifier = violation.NewClassifier()
	s.scorer = scoring.NewEngine(
		scoring.WithBaseWeights(s.penaltyWeights),
		scoring.WithDecay(s.decayStep, s.decayFloor),
	)

	// Candidate liveness: Redis when configured, in-process otherwise
	if s.redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: s.redisAddr})
		s.tracker = presence.NewRedisTracker(client, presence.WithRedisTTL(s.presenceTTL))
		s.logger.Info(ctx, "using redis presence tracker", logger.String("addr", s.redisAddr))
	} else {
		s.tracker = presence.NewMemoryTracker(presence.WithTTL(s.presenceTTL))
	}

	s.analyzer = analysis.New(s.analysisURL, analysis.WithTimeout(s.analysisTimeout))

	// Create and start the async violation-event writer pool
	s.writers = workerpool.NewPool(s.writerCount, s.writerQueueSize, s.store)
	s.writers.Start(ctx)

	s.sessions = make(map[string]*session.Runtime)
	s.baseCtx = ctx

	// Janitor: reclaim runtimes of finalized sessions
	s.wg.Add(1)
	go s.sweep(ctx)

	s.started = true
	s.logger.Info(ctx, "proctoring service started",
		logger.String("store", s.storeBackend),
		logger.Int("eventQueueSize", s.writerQueueSize),
		logger.Int("notifyQueueSize", s.notifyQueueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false

	runtimes := make([]*session.Runtime, 0, len(s.sessions))
	for id, rt := range s.sessions {
		runtimes = append(runtimes, rt)
		delete(s.sessions, id)
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping proctoring service...")

	// Stop per-session loops first so nothing new feeds the writers
	for _, rt := range runtimes {
		_ = rt.Close()
	}
	s.wg.Wait()

	// Drain queued violation events before the store goes away
	if s.writers != nil {
		_ = s.writers.Shutdown(ctx)
	}
	if s.notifications != nil {
		_ = s.notifications.Close()
	}
	if s.tracker != nil {
		_ = s.tracker.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.logger.Info(ctx, "proctoring service stopped")
}

// sweep periodically reclaims runtimes whose sessions reached a
// terminal state. The documents stay in the store for observers.
func (s *Service) sweep(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.collectTerminal(ctx)
		}
	}
}

func (s *Service) collectTerminal(ctx context.Context) {
	s.mu.Lock()
	var reclaimed []*session.Runtime
	for id, rt := range s.sessions {
		if rt.State().Terminal() {
			delete(s.sessions, id)
			reclaimed = append(reclaimed, rt)
		}
	}
	s.mu.Unlock()

	for _, rt := range reclaimed {
		_ = rt.Close()
	}
	if len(reclaimed) > 0 {
		s.logger.Debug(ctx, "reclaimed finished session runtimes",
			logger.Int("count", len(reclaimed)),
		)
	}
}

// Notifications returns the channel draining observer notifications.
// Enqueues on the detection paths never block on this consumer.
func (s *Service) Notifications(ctx context.Context) <-chan model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.notifications == nil {
		ch := make(chan model.Notification)
		close(ch)
		return ch
	}
	return s.notifications.Dequeue(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"storeBackend": s.storeBackend,
		"dedupeSize":   s.dedupeSize,
	}

	if s.started {
		ctx := context.Background()
		stats["activeRuntimes"] = len(s.sessions)
		stats["trackedSessions"] = s.store.Count(ctx)
		stats["eventQueueLength"] = s.writers.Len()
		stats["notifyQueueLength"] = s.notifications.Len(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
	}

	return stats
}
