package service

import (
	"context"
	"fmt"
	"time"

	repository "github.com/BakulBd/GreenGuardian-sub000/internal/adapters/repository"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/debounce"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/live"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/session"
	"github.com/BakulBd/GreenGuardian-sub000/internal/signal"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

// CreateSession provisions a session document and its runtime. The
// returned snapshot is the caller's copy.
func (s *Service) CreateSession(ctx context.Context, examID, candidateID string, duration time.Duration, uploadMode bool) (*model.ExamSession, error) {
	s.mu.RLock()
	ready := s.started
	s.mu.RUnlock()
	if !ready {
		return nil, ErrNotStarted
	}

	if duration <= 0 {
		duration = s.examDuration
	}

	doc := session.NewSession(examID, candidateID, duration, uploadMode, time.Now())
	if err := s.store.CreateSession(ctx, doc); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	rt := session.New(s.baseCtx, doc, s.store,
		session.WithCyclePeriod(s.cyclePeriod),
		session.WithSampleTTL(s.sampleTTL),
		session.WithMaxWarnings(s.maxWarnings),
		session.WithReviewThreshold(s.reviewThreshold),
		session.WithSubmitRetry(s.submitAttempts, s.submitRetryDelay),
		session.WithSnapshotEvery(s.snapshotEvery),
		session.WithDetector(s.newDetector()),
		session.WithClassifier(s.classifier),
		session.WithScorer(s.scorer),
		session.WithFeed(signal.NewFeed()),
		session.WithEventSink(s.writers),
		session.WithNotifier(s.notifications),
		session.WithAlertPolicy(s.observer),
		session.WithPresence(s.tracker),
		session.WithAnalyzer(s.analyzer),
	)

	s.mu.Lock()
	s.sessions[doc.ID] = rt
	s.mu.Unlock()

	s.logger.Info(ctx, "session created",
		logger.String("session_id", doc.ID),
		logger.String("exam_id", examID),
		logger.String("candidate_id", candidateID),
		logger.Duration("duration", duration),
		logger.Bool("upload_mode", uploadMode),
	)

	return rt.Snapshot(), nil
}

// newDetector builds the per-session debouncer. Each session owns its
// own streak and cooldown state.
func (s *Service) newDetector() *debounce.Context {
	opts := []debounce.Option{
		debounce.WithThreshold(s.debounceThreshold),
		debounce.WithNoFaceGrace(s.noFaceGrace),
		debounce.WithDefaultCooldown(s.defaultCooldown),
	}
	for cond, d := range s.cooldowns {
		opts = append(opts, debounce.WithCooldown(cond, d))
	}
	return debounce.NewContext(opts...)
}

// runtime looks up the live runtime for a session.
func (s *Service) runtime(sessionID string) (*session.Runtime, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.sessions[sessionID]
	return rt, ok
}

// Acknowledge moves a session from idle into camera setup.
func (s *Service) Acknowledge(ctx context.Context, sessionID string) error {
	rt, ok := s.runtime(sessionID)
	if !ok {
		return repository.ErrNotFound
	}
	return rt.Acknowledge(ctx)
}

// ValidateCamera records the camera check outcome and readies the
// session, degraded or not.
func (s *Service) ValidateCamera(ctx context.Context, sessionID string, degraded bool) error {
	rt, ok := s.runtime(sessionID)
	if !ok {
		return repository.ErrNotFound
	}
	return rt.ValidateCamera(ctx, degraded)
}

// StartExam begins the exam, the countdown and the detection loop.
func (s *Service) StartExam(ctx context.Context, sessionID string) error {
	rt, ok := s.runtime(sessionID)
	if !ok {
		return repository.ErrNotFound
	}
	return rt.Start(ctx)
}

// PushSample ingests one detection sample. Samples carrying an id are
// deduplicated so client retries stay at-most-once.
func (s *Service) PushSample(ctx context.Context, sessionID string, sample model.DetectionSample) error {
	var key string
	if sample.SampleID != "" {
		key = sessionID + ":" + sample.SampleID
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordSampleDuplicate()
			s.logger.Debug(ctx, "duplicate sample dropped",
				logger.String("session_id", sessionID),
				logger.String("sample_id", sample.SampleID),
			)
			return nil
		}
	}

	rt, ok := s.runtime(sessionID)
	if !ok {
		if key != "" {
			// The sample never reached a runtime; let a retry land later.
			s.deduper.Unrecord(ctx, key)
		}
		return repository.ErrNotFound
	}
	return rt.PushSample(ctx, sample)
}

// Trigger reports a discrete violation signal such as a tab switch. A
// client-supplied event id makes retries idempotent.
func (s *Service) Trigger(ctx context.Context, sessionID, eventID, trigger, detail string) error {
	var key string
	if eventID != "" {
		key = sessionID + ":" + eventID
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordSampleDuplicate()
			s.logger.Debug(ctx, "duplicate trigger dropped",
				logger.String("session_id", sessionID),
				logger.String("event_id", eventID),
			)
			return nil
		}
	}

	rt, ok := s.runtime(sessionID)
	if !ok {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		return repository.ErrNotFound
	}
	return rt.Trigger(ctx, trigger, detail)
}

// Submit runs the manual submission path. Re-sent submissions for an
// already submitted session are accepted as no-ops, even after its
// runtime was reclaimed.
func (s *Service) Submit(ctx context.Context, sessionID string) error {
	if rt, ok := s.runtime(sessionID); ok {
		return rt.Submit(ctx)
	}

	doc, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	switch doc.State {
	case model.StateSubmitted, model.StateAutoSubmitted:
		metrics.RecordDuplicateSubmission()
		return nil
	case model.StateCancelled:
		return fmt.Errorf("submit in state %q: %w", doc.State, session.ErrInvalidTransition)
	}
	return repository.ErrNotFound
}

// CancelSession abandons a session before the exam starts.
func (s *Service) CancelSession(ctx context.Context, sessionID string) error {
	if rt, ok := s.runtime(sessionID); ok {
		return rt.Cancel(ctx)
	}

	doc, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if doc.State == model.StateCancelled {
		return nil
	}
	return fmt.Errorf("cancel in state %q: %w", doc.State, session.ErrInvalidTransition)
}

// AcknowledgeAlert clears the session's pending critical alert.
func (s *Service) AcknowledgeAlert(ctx context.Context, sessionID string) error {
	rt, ok := s.runtime(sessionID)
	if !ok {
		return repository.ErrNotFound
	}
	rt.AcknowledgeAlert()
	return nil
}

// Session returns the current session document: the live snapshot when
// a runtime exists, the stored document otherwise.
func (s *Service) Session(ctx context.Context, sessionID string) (*model.ExamSession, error) {
	if rt, ok := s.runtime(sessionID); ok {
		return rt.Snapshot(), nil
	}
	return s.store.Session(ctx, sessionID)
}

// SessionEvents returns a session's violation log, oldest first.
func (s *Service) SessionEvents(ctx context.Context, sessionID string) ([]model.ViolationEvent, error) {
	return s.store.EventsBySession(ctx, sessionID)
}

// LiveView assembles the observer view over an exam's active sessions.
// Event and presence lookups are best effort; a failing lookup leaves
// the row in place with what is known.
func (s *Service) LiveView(ctx context.Context, examID string) (model.ExamLiveView, error) {
	docs, err := s.store.ActiveSessionsByExam(ctx, examID)
	if err != nil {
		return model.ExamLiveView{}, fmt.Errorf("load active sessions: %w", err)
	}

	inputs := make([]live.Input, 0, len(docs))
	for _, doc := range docs {
		events, err := s.store.EventsBySession(ctx, doc.ID)
		if err != nil {
			s.logger.Debug(ctx, "events unavailable for live view",
				logger.String("session_id", doc.ID),
				logger.Error(err),
			)
		}
		online, err := s.tracker.Online(ctx, doc.ID)
		if err != nil {
			s.logger.Debug(ctx, "presence unavailable for live view",
				logger.String("session_id", doc.ID),
				logger.Error(err),
			)
		}
		inputs = append(inputs, live.Input{
			Session: doc,
			Events:  events,
			Online:  online,
		})
	}

	return s.observer.BuildView(examID, inputs), nil
}
