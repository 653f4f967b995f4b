package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/repository"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/violation"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

// run is the per-session loop: one goroutine owning the detection cycle
// and the countdown. It exits on teardown or process shutdown.
func (r *Runtime) run(ctx context.Context, remaining time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cyclePeriod)
	defer ticker.Stop()

	// Zero remaining means no countdown was configured.
	var expiry <-chan time.Time
	if remaining > 0 {
		countdown := time.NewTimer(remaining)
		defer countdown.Stop()
		expiry = countdown.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.cycle(ctx)
		case <-expiry:
			r.expire(ctx)
		}
	}
}

// expire fires the authoritative countdown submission. The timer fires
// once; if the terminal write fails the session stays resumable through
// the remaining triggers.
func (r *Runtime) expire(ctx context.Context) {
	if err := r.submit(ctx, model.TriggerTimer); err != nil && !errors.Is(err, ErrSubmissionInFlight) {
		r.logger.Error(ctx, "submission on expiry failed",
			logger.String("session_id", r.session.ID),
			logger.Error(err),
		)
	}
}

// cycle evaluates the newest pushed sample against the debouncer and
// applies whatever it confirms. Exactly one sample generation is
// consumed per cycle; a cycle with nothing new only checks stream
// health.
func (r *Runtime) cycle(ctx context.Context) {
	r.mu.Lock()

	if r.session.State != model.StateInProgress || r.detectionDown {
		r.mu.Unlock()
		return
	}

	r.cycleCount++

	sample, ok := r.feed.Take()
	if !ok {
		stale := r.feed.Stale(r.sampleTTL)
		if stale {
			metrics.RecordSampleStale()
		}
		lost := stale && !r.cameraLost
		if lost {
			r.cameraLost = true
		}
		r.mu.Unlock()
		if lost {
			r.reportCameraLost(ctx)
		}
		return
	}

	if r.cameraLost {
		// The stream reattached on its own; same feed, no ceremony.
		r.cameraLost = false
		r.logger.Info(ctx, "camera stream reattached",
			logger.String("session_id", r.session.ID),
		)
	}

	rep := r.detect.Observe(sample)
	for _, sup := range rep.Suppressed {
		metrics.RecordDetectionSuppressed(string(sup.Condition), string(sup.Reason))
	}

	submitNow := false
	for _, conf := range rep.Confirmed {
		metrics.RecordDetectionConfirmed(string(conf.Condition))
		if r.applyViolationLocked(ctx, conf.Kind) {
			// The warning limit was hit; remaining confirmations of this
			// report are discarded along with everything after terminal.
			submitNow = true
			break
		}
	}

	if !submitNow && r.snapshotEvery > 0 && sample.FrameRef != "" && r.cycleCount%r.snapshotEvery == 0 {
		r.session.FrameRef = sample.FrameRef
		go r.saveThumbnail(sample.FrameRef)
	}

	r.mu.Unlock()

	if submitNow {
		if err := r.submit(ctx, model.TriggerWarnings); err != nil && !errors.Is(err, ErrSubmissionInFlight) {
			r.logger.Error(ctx, "submission at warning limit failed",
				logger.String("session_id", r.session.ID),
				logger.Error(err),
			)
		}
	}
}

// PushSample feeds one detection sample into the session. Pushes
// overwrite: only the newest sample is evaluated on the next cycle.
// Samples against sessions not taking the exam are rejected.
func (r *Runtime) PushSample(ctx context.Context, sample model.DetectionSample) error {
	r.mu.Lock()
	state := r.session.State
	r.mu.Unlock()

	if state != model.StateInProgress {
		return fmt.Errorf("sample in state %q: %w", state, ErrInvalidTransition)
	}

	metrics.RecordSampleIngested()
	r.feed.Push(sample)
	r.heartbeat(ctx)
	return nil
}

// Trigger applies one client-reported anti-cheat trigger. Unclassified
// triggers are logged for audit and never scored; everything else lands
// as a confirmed violation immediately, with no debounce.
func (r *Runtime) Trigger(ctx context.Context, trigger, detail string) error {
	r.mu.Lock()

	if r.session.State != model.StateInProgress {
		state := r.session.State
		r.mu.Unlock()
		return fmt.Errorf("trigger in state %q: %w", state, ErrInvalidTransition)
	}

	kind := r.classifier.Classify(trigger, detail)
	if kind == model.KindUnknown {
		r.mu.Unlock()
		metrics.RecordUnknownTrigger()
		r.logger.Warn(ctx, "unclassified trigger kept for audit only",
			logger.String("session_id", r.session.ID),
			logger.String("trigger", trigger),
			logger.String("detail", detail),
		)
		r.heartbeat(ctx)
		return nil
	}

	submitNow := r.applyViolationLocked(ctx, kind)
	r.mu.Unlock()

	r.heartbeat(ctx)
	if submitNow {
		if err := r.submit(ctx, model.TriggerWarnings); err != nil && !errors.Is(err, ErrSubmissionInFlight) {
			r.logger.Error(ctx, "submission at warning limit failed",
				logger.String("session_id", r.session.ID),
				logger.Error(err),
			)
		}
	}
	return nil
}

// applyViolationLocked records one confirmed violation: counts, score,
// warning, event, notification, alert evaluation, progress write. It
// returns true when the warning limit is reached, in which case the
// caller must release the lock and run the warnings submission trigger.
func (r *Runtime) applyViolationLocked(ctx context.Context, kind model.Kind) bool {
	now := r.now()
	r.session.Counts[kind]++
	count := r.session.Counts[kind]
	r.session.Score = r.scorer.Score(r.session.Counts)
	r.session.WarningCount++
	r.session.UpdatedAt = now

	severity := violation.SeverityOf(kind)
	message := violation.MessageOf(kind)
	metrics.RecordViolation(string(kind), string(severity))
	metrics.RecordWarningIssued()

	// The event carries the marginal cost of this occurrence under decay.
	marginal := r.scorer.Penalty(kind, count) - r.scorer.Penalty(kind, count-1)

	event := model.ViolationEvent{
		ID:         uuid.NewString(),
		SessionID:  r.session.ID,
		ExamID:     r.session.ExamID,
		Kind:       kind,
		Severity:   severity,
		Penalty:    marginal,
		Message:    message,
		OccurredAt: now,
	}
	if r.events == nil || !r.events.Submit(ctx, event) {
		// The counts already carry the violation; only the audit record
		// is lost.
		r.logger.Error(ctx, "violation event not queued",
			logger.String("session_id", r.session.ID),
			logger.String("kind", string(kind)),
		)
	}

	r.notify(ctx, model.NotifyWarning,
		fmt.Sprintf("%s (warnings: %d/%d)", message, r.session.WarningCount, r.maxWarnings))

	if r.alerts != nil {
		bucket, fire := r.alerts.Evaluate(r.session.ID, r.session.Score)
		if fire {
			metrics.RecordAlertEmitted()
			r.notify(ctx, model.NotifyAlert,
				fmt.Sprintf("Critical risk: score %d", r.session.Score))
		} else if bucket == model.RiskCritical {
			metrics.RecordAlertSuppressed()
		}
	}

	r.persistProgressLocked(ctx)

	return r.session.WarningCount >= r.maxWarnings
}

// persistProgressLocked mirrors the in-memory document into the store.
// The runtime copy is authoritative; a failed write only logs, and the
// next write carries the full counts again.
func (r *Runtime) persistProgressLocked(ctx context.Context) {
	warnings := r.session.WarningCount
	score := r.session.Score
	counts := make(map[model.Kind]int, len(r.session.Counts))
	for k, v := range r.session.Counts {
		counts[k] = v
	}

	err := r.store.UpdateProgress(ctx, r.session.ID, repository.ProgressUpdate{
		WarningCount: &warnings,
		Counts:       counts,
		Score:        &score,
		At:           r.session.UpdatedAt,
	})
	if err != nil {
		metrics.RecordErrorByComponent("session", "progress_write")
		r.logger.Error(ctx, "progress write failed",
			logger.String("session_id", r.session.ID),
			logger.Error(err),
		)
	}
}

// reportCameraLost raises the once-per-episode stream loss warning. The
// exam keeps running; the same feed picks the stream back up whenever
// samples resume.
func (r *Runtime) reportCameraLost(ctx context.Context) {
	metrics.RecordCameraStreamLost()
	r.logger.Warn(ctx, "camera stream lost, awaiting reattach",
		logger.String("session_id", r.session.ID),
	)
	r.notify(ctx, model.NotifyLifecycle, "Camera stream lost, attempting to reconnect")
}

// heartbeat marks the candidate alive for the observer view. Liveness
// never affects scoring, so failures only log.
func (r *Runtime) heartbeat(ctx context.Context) {
	if r.presence == nil {
		return
	}
	if err := r.presence.Heartbeat(ctx, r.session.ID); err != nil {
		r.logger.Debug(ctx, "presence heartbeat failed",
			logger.String("session_id", r.session.ID),
			logger.Error(err),
		)
	}
}

// saveThumbnail stores the newest frame reference off the cycle path.
func (r *Runtime) saveThumbnail(frameRef string) {
	ctx, cancel := context.WithTimeout(r.baseCtx, thumbnailWriteTimeout)
	defer cancel()

	if err := r.store.SaveThumbnail(ctx, r.session.ID, frameRef); err != nil {
		r.logger.Debug(ctx, "thumbnail write failed",
			logger.String("session_id", r.session.ID),
			logger.Error(err),
		)
	}
}
