// Package session drives one exam session end to end: the lifecycle
// state machine, the periodic detection cycle, warning accumulation,
// the guarded submission path and teardown.
//
// Each session owns one Runtime. All mutation goes through the runtime
// under a single lock; readers get clones. The detection loop is one
// goroutine per active session, launched at Start and stopped on every
// exit path.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/analysis"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/mq/notify"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/presence"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/repository"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/debounce"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/scoring"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/violation"
	"github.com/BakulBd/GreenGuardian-sub000/internal/signal"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

// Default runtime configuration constants.
const (
	defaultCyclePeriod      = 7 * time.Second
	defaultSampleTTL        = 15 * time.Second
	defaultMaxWarnings      = 5
	defaultReviewThreshold  = 50
	defaultSubmitAttempts   = 3
	defaultSubmitRetryDelay = 500 * time.Millisecond
	defaultSnapshotEvery    = 4
	thumbnailWriteTimeout   = 2 * time.Second
	analysisBudget          = 30 * time.Second
)

// fullScore is the starting behavior score before any penalty.
const fullScore = 100

// transitions lists the allowed lifecycle edges. The lifecycle moves
// forward only; the single backward edge is Submitting to InProgress
// after a failed terminal write.
var transitions = map[model.State][]model.State{
	model.StateIdle:        {model.StateCameraSetup, model.StateCancelled},
	model.StateCameraSetup: {model.StateReady, model.StateCancelled},
	model.StateReady:       {model.StateInProgress, model.StateCancelled},
	model.StateInProgress:  {model.StateSubmitting},
	model.StateSubmitting:  {model.StateSubmitted, model.StateAutoSubmitted, model.StateInProgress},
}

// CanTransition reports whether the lifecycle allows moving from one
// state to another.
func CanTransition(from, to model.State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NewSession builds a fresh session document in Idle with full trust.
// The caller persists it before lifecycle operations run.
func NewSession(examID, candidateID string, duration time.Duration, uploadMode bool, now time.Time) *model.ExamSession {
	return &model.ExamSession{
		ID:          uuid.NewString(),
		ExamID:      examID,
		CandidateID: candidateID,
		State:       model.StateIdle,
		UploadMode:  uploadMode,
		Duration:    duration,
		CreatedAt:   now,
		UpdatedAt:   now,
		Counts:      make(map[model.Kind]int),
		Score:       fullScore,
	}
}

// EventSink receives confirmed violation events for asynchronous
// persistence. The event-writer pool implements it.
type EventSink interface {
	// Submit enqueues one event; false means the event was dropped.
	Submit(ctx context.Context, event model.ViolationEvent) bool
}

// Notifier accepts observer notifications without blocking. The
// pending-notification queue implements it.
type Notifier interface {
	// Enqueue adds a notification; false means it was dropped.
	Enqueue(ctx context.Context, n model.Notification) bool
}

// AlertPolicy decides when a score change raises a critical alert and
// owns per-session alert bookkeeping. The live service implements it.
type AlertPolicy interface {
	Evaluate(sessionID string, score int) (model.RiskBucket, bool)
	Acknowledge(sessionID string)
	Forget(sessionID string)
}

// Runtime drives one exam session. It owns the session document, its
// detection context and its feed; everything else is injected.
type Runtime struct {
	store    repository.Store
	events   EventSink
	queue    Notifier
	alerts   AlertPolicy
	presence presence.Tracker
	analyzer analysis.Analyzer

	detect     *debounce.Context
	classifier *violation.Classifier
	scorer     *scoring.Engine
	feed       *signal.Feed

	cyclePeriod      time.Duration
	sampleTTL        time.Duration
	maxWarnings      int
	reviewThreshold  int
	submitAttempts   uint
	submitRetryDelay time.Duration
	snapshotEvery    int

	now    func() time.Time
	logger logger.Logger

	// baseCtx scopes the detection loop and detached writes to the
	// process, not to the request that happened to call Start.
	baseCtx  context.Context
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu             sync.Mutex
	session        *model.ExamSession
	submitInFlight bool
	detectionDown  bool
	cameraLost     bool
	cycleCount     int
}

// New creates a runtime for one session document. The document must
// already be persisted; the runtime assumes it exists in the store.
func New(ctx context.Context, sess *model.ExamSession, store repository.Store, opts ...Option) *Runtime {
	if ctx == nil {
		ctx = context.Background()
	}

	r := &Runtime{
		store:            store,
		detect:           debounce.NewContext(),
		classifier:       violation.NewClassifier(),
		scorer:           scoring.NewEngine(),
		feed:             signal.NewFeed(),
		cyclePeriod:      defaultCyclePeriod,
		sampleTTL:        defaultSampleTTL,
		maxWarnings:      defaultMaxWarnings,
		reviewThreshold:  defaultReviewThreshold,
		submitAttempts:   defaultSubmitAttempts,
		submitRetryDelay: defaultSubmitRetryDelay,
		snapshotEvery:    defaultSnapshotEvery,
		now:              time.Now,
		logger:           logger.Get().Named("session"),
		baseCtx:          ctx,
		stopChan:         make(chan struct{}),
		session:          sess,
	}

	// Apply all options
	for _, opt := range opts {
		opt(r)
	}

	if r.session.Counts == nil {
		r.session.Counts = make(map[model.Kind]int)
	}

	return r
}

// ID returns the immutable session identifier.
func (r *Runtime) ID() string { return r.session.ID }

// ExamID returns the exam the session belongs to.
func (r *Runtime) ExamID() string { return r.session.ExamID }

// State returns the current lifecycle state.
func (r *Runtime) State() model.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.State
}

// Snapshot returns a deep copy of the session document.
func (r *Runtime) Snapshot() *model.ExamSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Clone()
}

// Remaining reports how much exam time is left.
func (r *Runtime) Remaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Remaining(r.now())
}

// Acknowledge accepts the exam rules and moves Idle to CameraSetup.
func (r *Runtime) Acknowledge(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !CanTransition(r.session.State, model.StateCameraSetup) {
		return fmt.Errorf("acknowledge in state %q: %w", r.session.State, ErrInvalidTransition)
	}

	now := r.now()
	state := model.StateCameraSetup
	if err := r.store.UpdateProgress(ctx, r.session.ID, repository.ProgressUpdate{State: &state, At: now}); err != nil {
		return fmt.Errorf("acknowledge session %s: %w", r.session.ID, err)
	}

	r.session.State = state
	r.session.UpdatedAt = now
	return nil
}

// ValidateCamera completes camera setup and moves CameraSetup to Ready.
// degraded marks the camera pipeline unavailable for this session: the
// exam proceeds with both camera modalities disabled instead of being
// blocked on detection.
func (r *Runtime) ValidateCamera(ctx context.Context, degraded bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !CanTransition(r.session.State, model.StateReady) {
		return fmt.Errorf("validate camera in state %q: %w", r.session.State, ErrInvalidTransition)
	}

	now := r.now()
	state := model.StateReady
	update := repository.ProgressUpdate{State: &state, At: now}
	if degraded {
		update.CameraDegraded = &degraded
	}
	if err := r.store.UpdateProgress(ctx, r.session.ID, update); err != nil {
		return fmt.Errorf("validate camera for session %s: %w", r.session.ID, err)
	}

	r.session.State = state
	r.session.UpdatedAt = now
	if degraded {
		r.session.CameraDegraded = true
		r.detect.Disable(debounce.ModalityFace)
		r.detect.Disable(debounce.ModalityObjects)
		metrics.RecordErrorByComponent("session", "detection_degraded")
		r.logger.Warn(ctx, "camera detection degraded, exam continues without camera signals",
			logger.String("session_id", r.session.ID),
		)
	}
	return nil
}

// Start begins the exam: Ready to InProgress, countdown armed, feed
// armed for staleness tracking, detection loop launched.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// InProgress is also reachable backward from Submitting, so the edge
	// check alone is not enough here.
	if r.session.State != model.StateReady {
		return fmt.Errorf("start in state %q: %w", r.session.State, ErrInvalidTransition)
	}

	now := r.now()
	state := model.StateInProgress
	if err := r.store.UpdateProgress(ctx, r.session.ID, repository.ProgressUpdate{
		State:     &state,
		StartedAt: &now,
		At:        now,
	}); err != nil {
		return fmt.Errorf("start session %s: %w", r.session.ID, err)
	}

	r.session.State = state
	r.session.StartedAt = now
	r.session.UpdatedAt = now

	r.feed.Arm()
	r.wg.Add(1)
	go r.run(r.baseCtx, r.session.Remaining(now))

	r.logger.Info(ctx, "exam started",
		logger.String("session_id", r.session.ID),
		logger.String("exam_id", r.session.ExamID),
		logger.Duration("duration", r.session.Duration),
	)
	r.notify(ctx, model.NotifyLifecycle, "Exam started")
	return nil
}

// Cancel abandons a session before the exam starts. Cancelling an
// already cancelled session is a no-op; cancelling one that entered the
// exam is rejected.
func (r *Runtime) Cancel(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session.State == model.StateCancelled {
		return nil
	}
	if !CanTransition(r.session.State, model.StateCancelled) {
		return fmt.Errorf("cancel in state %q: %w", r.session.State, ErrInvalidTransition)
	}

	now := r.now()
	if err := r.store.FinalizeSession(ctx, r.session.ID, repository.FinalUpdate{
		State: model.StateCancelled,
		At:    now,
	}); err != nil {
		return fmt.Errorf("cancel session %s: %w", r.session.ID, err)
	}

	r.session.State = model.StateCancelled
	r.session.TerminalAt = now
	r.session.UpdatedAt = now

	r.teardownLocked(ctx)
	r.logger.Info(ctx, "session cancelled", logger.String("session_id", r.session.ID))
	return nil
}

// AcknowledgeAlert clears the session's pending critical alert.
func (r *Runtime) AcknowledgeAlert() {
	if r.alerts != nil {
		r.alerts.Acknowledge(r.session.ID)
	}
}

// Close stops the runtime loop without finalizing the session, for
// process shutdown. The stored document keeps whatever progress the
// last write carried.
func (r *Runtime) Close() error {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	r.wg.Wait()
	return nil
}

// teardownLocked releases everything the session holds: the detection
// loop, debounce state, alert bookkeeping and presence. It runs on
// every exit path and is safe to call however far the lifecycle got.
// The feed itself stays; its identity belongs to the session and late
// sources may still hold it.
func (r *Runtime) teardownLocked(ctx context.Context) {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}

	r.detect.Reset()

	if r.alerts != nil {
		r.alerts.Forget(r.session.ID)
	}
	if r.presence != nil {
		if err := r.presence.Forget(ctx, r.session.ID); err != nil {
			r.logger.Warn(ctx, "presence teardown failed",
				logger.String("session_id", r.session.ID),
				logger.Error(err),
			)
		}
	}
}

// notify enqueues an observer notification without blocking. A full
// queue drops the message and logs; delivery is never load-bearing.
func (r *Runtime) notify(ctx context.Context, typ model.NotificationType, msg string) {
	if r.queue == nil {
		return
	}
	n := model.Notification{
		Type:      typ,
		SessionID: r.session.ID,
		ExamID:    r.session.ExamID,
		Message:   msg,
		At:        r.now(),
	}
	if !r.queue.Enqueue(ctx, n) {
		r.logger.Warn(ctx, "notification dropped",
			logger.String("session_id", r.session.ID),
			logger.Error(notify.ErrQueueFull),
		)
	}
}
