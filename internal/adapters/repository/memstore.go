// Package repository defines the session store interface and errors.
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

// In-memory Store implementation.
//
// Session documents live in maps guarded by a single RWMutex; reads hand
// out deep copies so callers never share memory with the store. Violation
// logs are per-session append-only slices.

// defaultMetricsUpdateInterval is how often the background goroutine
// refreshes the session gauges.
const defaultMetricsUpdateInterval = 5 * time.Second

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.ExamSession
	events   map[string][]model.ViolationEvent
	byExam   map[string]map[string]struct{}

	metricsUpdateInterval time.Duration

	// Background metrics management
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewMemoryStore constructs an in-memory store with configuration options.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions:              make(map[string]*model.ExamSession),
		events:                make(map[string][]model.ViolationEvent),
		byExam:                make(map[string]map[string]struct{}),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	// Initialize stop channel and start the background metrics goroutine
	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)

	return s
}

// Close gracefully shuts down the background metrics goroutine.
func (s *MemoryStore) Close() error {
	// Signal all goroutines to stop
	select {
	case <-s.stopChan:
		// Channel already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// CreateSession implements Store.CreateSession.
func (s *MemoryStore) CreateSession(ctx context.Context, session *model.ExamSession) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		metrics.RecordStoreError("create")
		return ErrDuplicateID
	}

	s.sessions[session.ID] = session.Clone()
	if s.byExam[session.ExamID] == nil {
		s.byExam[session.ExamID] = make(map[string]struct{})
	}
	s.byExam[session.ExamID][session.ID] = struct{}{}
	return nil
}

// UpdateProgress implements Store.UpdateProgress.
func (s *MemoryStore) UpdateProgress(ctx context.Context, sessionID string, update ProgressUpdate) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	// Terminal states only ever land through FinalizeSession.
	if update.State != nil && update.State.Terminal() {
		metrics.RecordStoreError("update")
		return ErrInvalidState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		metrics.RecordStoreError("update")
		return ErrNotFound
	}
	if sess.State.Terminal() {
		metrics.RecordStoreError("update")
		return ErrSessionFinalized
	}

	if update.State != nil {
		sess.State = *update.State
	}
	if update.StartedAt != nil {
		sess.StartedAt = *update.StartedAt
	}
	if update.WarningCount != nil {
		sess.WarningCount = *update.WarningCount
	}
	if update.Counts != nil {
		counts := make(map[model.Kind]int, len(update.Counts))
		for k, v := range update.Counts {
			counts[k] = v
		}
		sess.Counts = counts
	}
	if update.Score != nil {
		sess.Score = *update.Score
	}
	if update.CameraDegraded != nil {
		sess.CameraDegraded = *update.CameraDegraded
	}
	if !update.At.IsZero() {
		sess.UpdatedAt = update.At
	}
	return nil
}

// FinalizeSession implements Store.FinalizeSession.
func (s *MemoryStore) FinalizeSession(ctx context.Context, sessionID string, final FinalUpdate) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	if !final.State.Terminal() {
		metrics.RecordStoreError("finalize")
		return ErrInvalidState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		metrics.RecordStoreError("finalize")
		return ErrNotFound
	}
	if sess.State.Terminal() {
		metrics.RecordStoreError("finalize")
		return ErrSessionFinalized
	}

	sess.State = final.State
	sess.SubmitReason = final.Reason
	if final.Score != nil {
		sess.Score = *final.Score
	}
	if final.Flagged != nil {
		sess.FlaggedForReview = *final.Flagged
	}
	sess.TerminalAt = final.At
	if !final.At.IsZero() {
		sess.UpdatedAt = final.At
	}
	return nil
}

// AppendEvent implements Store.AppendEvent.
//
// Logs stay open past the terminal write: async writers may land an
// event that was emitted just before submission.
func (s *MemoryStore) AppendEvent(ctx context.Context, event model.ViolationEvent) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[event.SessionID]; !ok {
		metrics.RecordStoreError("append_event")
		return ErrNotFound
	}
	s.events[event.SessionID] = append(s.events[event.SessionID], event)
	return nil
}

// SaveThumbnail implements Store.SaveThumbnail.
func (s *MemoryStore) SaveThumbnail(ctx context.Context, sessionID string, frameRef string) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		metrics.RecordStoreError("thumbnail")
		return ErrNotFound
	}
	sess.FrameRef = frameRef
	return nil
}

// AttachAnalysis implements Store.AttachAnalysis. Reports arrive after
// the terminal write, so finalized sessions accept them.
func (s *MemoryStore) AttachAnalysis(ctx context.Context, report model.AnalysisReport) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[report.SessionID]
	if !ok {
		metrics.RecordStoreError("analysis")
		return ErrNotFound
	}
	attached := report
	sess.Analysis = &attached
	return nil
}

// Session implements Store.Session.
func (s *MemoryStore) Session(ctx context.Context, sessionID string) (*model.ExamSession, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreQueryLatency(float64(latency))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		metrics.RecordStoreError("session")
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// EventsBySession implements Store.EventsBySession.
func (s *MemoryStore) EventsBySession(ctx context.Context, sessionID string) ([]model.ViolationEvent, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreQueryLatency(float64(latency))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		metrics.RecordStoreError("events")
		return nil, ErrNotFound
	}
	log := s.events[sessionID]
	out := make([]model.ViolationEvent, len(log))
	copy(out, log)
	return out, nil
}

// ActiveSessionsByExam implements Store.ActiveSessionsByExam. Results
// are sorted by session id for deterministic output.
func (s *MemoryStore) ActiveSessionsByExam(ctx context.Context, examID string) ([]*model.ExamSession, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreQueryLatency(float64(latency))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byExam[examID]
	out := make([]*model.ExamSession, 0, len(ids))
	for id := range ids {
		sess := s.sessions[id]
		if sess == nil || !activeState(sess.State) {
			continue
		}
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the total number of sessions tracked.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// activeState reports whether a session in this state is still taking
// the exam.
func activeState(state model.State) bool {
	return state == model.StateInProgress || state == model.StateSubmitting
}

// startMetricsUpdater starts a background goroutine that refreshes the
// session gauges.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

// updateMetrics refreshes the active-session and watched-exam gauges.
func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	activeCount := 0
	watched := make(map[string]struct{})
	for _, sess := range s.sessions {
		if activeState(sess.State) {
			activeCount++
			watched[sess.ExamID] = struct{}{}
		}
	}
	s.mu.RUnlock()

	metrics.UpdateActiveSessions(activeCount)
	metrics.UpdateWatchedExams(len(watched))
}
