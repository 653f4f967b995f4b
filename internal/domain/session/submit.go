package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"

	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/analysis"
	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/repository"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

// Submit runs the manual submission path.
func (r *Runtime) Submit(ctx context.Context) error {
	return r.submit(ctx, model.TriggerManual)
}

// submit is the single guarded submission path shared by all three
// triggers. Exactly one trigger acquires the guard and owns the
// terminal write; concurrent triggers are duplicates. A submission
// against an already submitted session is an idempotent no-op.
func (r *Runtime) submit(ctx context.Context, trigger model.SubmitTrigger) error {
	r.mu.Lock()

	switch {
	case r.submitInFlight:
		r.mu.Unlock()
		metrics.RecordDuplicateSubmission()
		return ErrSubmissionInFlight
	case r.session.State == model.StateSubmitted || r.session.State == model.StateAutoSubmitted:
		r.mu.Unlock()
		metrics.RecordDuplicateSubmission()
		return nil
	case !CanTransition(r.session.State, model.StateSubmitting):
		state := r.session.State
		r.mu.Unlock()
		return fmt.Errorf("submit in state %q: %w", state, ErrInvalidTransition)
	}

	// Guard acquired: this trigger owns the terminal write. Detection
	// stands down now and never resumes, whatever happens to the write.
	r.submitInFlight = true
	r.detectionDown = true
	r.session.State = model.StateSubmitting
	r.session.UpdatedAt = r.now()

	finalState := model.StateSubmitted
	if trigger != model.TriggerManual {
		finalState = model.StateAutoSubmitted
	}
	reason := reasonFor(trigger)
	score := r.session.Score
	flagged := score < r.reviewThreshold
	sessionID := r.session.ID
	r.mu.Unlock()

	err := r.writeTerminal(sessionID, finalState, reason, score, flagged)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitInFlight = false

	if err != nil {
		// The write is gone after bounded retries. Reopen the session so
		// a later trigger can retry; the detection cycle stays down so no
		// new warnings accumulate while persistence is unhealthy.
		r.session.State = model.StateInProgress
		r.session.UpdatedAt = r.now()
		metrics.RecordSubmission(string(trigger), "failed")
		metrics.RecordErrorByComponent("session", "terminal_write")
		r.logger.Error(ctx, "terminal write failed, session reopened",
			logger.String("session_id", sessionID),
			logger.String("trigger", string(trigger)),
			logger.Error(err),
		)
		r.notify(ctx, model.NotifyLifecycle, "Submission failed, please retry")
		return fmt.Errorf("submit session %s: %w", sessionID, err)
	}

	now := r.now()
	r.session.State = finalState
	r.session.SubmitReason = reason
	r.session.FlaggedForReview = flagged
	r.session.TerminalAt = now
	r.session.UpdatedAt = now

	metrics.RecordSubmission(string(trigger), submissionOutcome(finalState))
	metrics.RecordFinalScore(score)
	if flagged {
		metrics.RecordSessionFlagged()
	}

	r.teardownLocked(ctx)

	r.logger.Info(ctx, "session submitted",
		logger.String("session_id", sessionID),
		logger.String("trigger", string(trigger)),
		logger.Int("score", score),
		logger.Bool("flagged", flagged),
	)
	r.notify(ctx, model.NotifyLifecycle, "Exam submitted: "+reason)

	if r.session.UploadMode && r.analyzer != nil {
		go r.analyzeSubmission(sessionID)
	}
	return nil
}

// writeTerminal persists the exactly-once terminal record with bounded
// linear-backoff retry. It runs on the process context: the write
// belongs to the session, not to whichever request triggered it.
func (r *Runtime) writeTerminal(sessionID string, state model.State, reason string, score int, flagged bool) error {
	attempt := 0
	rt := retry.New(
		retry.Context(r.baseCtx),
		retry.Attempts(r.submitAttempts),
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			// Linear backoff: delay, 2*delay, 3*delay, ...
			return r.submitRetryDelay * time.Duration(n+1)
		}),
	)
	return rt.Do(func() error {
		if attempt > 0 {
			metrics.RecordSubmissionRetry()
		}
		attempt++

		err := r.store.FinalizeSession(r.baseCtx, sessionID, repository.FinalUpdate{
			State:   state,
			Reason:  reason,
			Score:   &score,
			Flagged: &flagged,
			At:      r.now(),
		})
		if errors.Is(err, repository.ErrSessionFinalized) {
			// An earlier attempt landed before its reply got lost; the
			// terminal record is there.
			return nil
		}
		return err
	})
}

// analyzeSubmission runs post-submission document analysis and attaches
// the report. It runs detached after the terminal write; an unavailable
// or failed analysis never surfaces to the submission path.
func (r *Runtime) analyzeSubmission(sessionID string) {
	ctx, cancel := context.WithTimeout(r.baseCtx, analysisBudget)
	defer cancel()

	// The analysis service resolves the uploaded artifact by session id.
	result, err := r.analyzer.Analyze(ctx, sessionID, nil)
	if err != nil {
		if !errors.Is(err, analysis.ErrUnavailable) {
			r.logger.Error(ctx, "document analysis failed",
				logger.String("session_id", sessionID),
				logger.Error(err),
			)
		}
		return
	}

	report := model.AnalysisReport{
		SessionID:     sessionID,
		ExtractedText: result.Text,
		AIConfidence:  result.AIConfidence,
		AnalyzedAt:    r.now(),
	}
	if err := r.store.AttachAnalysis(ctx, report); err != nil {
		r.logger.Error(ctx, "analysis report write failed",
			logger.String("session_id", sessionID),
			logger.Error(err),
		)
		return
	}

	r.mu.Lock()
	r.session.Analysis = &report
	r.mu.Unlock()
}

// reasonFor maps a submission trigger onto the recorded reason string.
func reasonFor(trigger model.SubmitTrigger) string {
	switch trigger {
	case model.TriggerTimer:
		return model.ReasonTimeExpired
	case model.TriggerWarnings:
		return model.ReasonMaxWarnings
	default:
		return model.ReasonManual
	}
}

// submissionOutcome maps a terminal state onto its metric label.
func submissionOutcome(state model.State) string {
	if state == model.StateAutoSubmitted {
		return "auto_submitted"
	}
	return "submitted"
}
