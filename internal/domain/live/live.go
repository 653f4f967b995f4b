// Package live builds the observer-facing fan-in over active sessions:
// risk bucketing from behavior scores, critical-first view assembly,
// and rate-limited critical alerting.
//
// The service never mutates session state; it reads snapshots handed in
// by the caller and keeps only its own alert bookkeeping.
package live

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
)

// Default aggregation configuration constants.
const (
	defaultLowMin        = 85
	defaultMediumMin     = 65
	defaultHighMin       = 40
	defaultRecentLimit   = 5
	defaultAlertInterval = 10 * time.Second
)

// Input carries one session's data into view assembly. Events arrive in
// append order (oldest first), as stores return them.
type Input struct {
	Session *model.ExamSession
	Events  []model.ViolationEvent
	Online  bool
}

// alertState tracks one session's critical episodes.
type alertState struct {
	inCritical bool
	pending    bool
}

// Service classifies scores into risk buckets, assembles exam views and
// rations critical alerts. Safe for concurrent use.
type Service struct {
	lowMin      int
	mediumMin   int
	highMin     int
	recentLimit int
	limiter     *rate.Limiter
	now         func() time.Time

	mu     sync.Mutex
	alerts map[string]*alertState
}

// NewService creates an aggregation service with default bucket bounds,
// recent-event limit and alert interval.
func NewService(opts ...Option) *Service {
	s := &Service{
		lowMin:      defaultLowMin,
		mediumMin:   defaultMediumMin,
		highMin:     defaultHighMin,
		recentLimit: defaultRecentLimit,
		limiter:     rate.NewLimiter(rate.Every(defaultAlertInterval), 1),
		now:         time.Now,
		alerts:      make(map[string]*alertState),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Bucket classifies a behavior score.
func (s *Service) Bucket(score int) model.RiskBucket {
	switch {
	case score >= s.lowMin:
		return model.RiskLow
	case score >= s.mediumMin:
		return model.RiskMedium
	case score >= s.highMin:
		return model.RiskHigh
	default:
		return model.RiskCritical
	}
}

// Evaluate records a session's current score and reports whether a
// critical alert should fire now. Entering the critical bucket raises a
// pending alert; while the alert stays unacknowledged and the session
// stays critical, at most one alert per interval fires across all
// sessions.
func (s *Service) Evaluate(sessionID string, score int) (model.RiskBucket, bool) {
	bucket := s.Bucket(score)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.alerts[sessionID]
	if !ok {
		st = &alertState{}
		s.alerts[sessionID] = st
	}

	if bucket != model.RiskCritical {
		st.inCritical = false
		return bucket, false
	}

	// A fresh drop into critical starts a new alert episode, even if an
	// earlier one was acknowledged.
	if !st.inCritical {
		st.inCritical = true
		st.pending = true
	}

	if st.pending && s.limiter.AllowN(s.now(), 1) {
		return bucket, true
	}
	return bucket, false
}

// Acknowledge clears a session's pending alert.
func (s *Service) Acknowledge(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.alerts[sessionID]; ok {
		st.pending = false
	}
}

// AlertPending reports whether a session has an unacknowledged alert.
func (s *Service) AlertPending(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.alerts[sessionID]
	return ok && st.pending
}

// Forget drops all alert bookkeeping for a session. Called when the
// session reaches a terminal state.
func (s *Service) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alerts, sessionID)
}

// BuildView assembles the observer view for one exam. Rows are sorted
// critical-first, then by ascending score, then by session ID for a
// stable order. Terminal or missing sessions are skipped; recent event
// messages are returned newest first.
func (s *Service) BuildView(examID string, inputs []Input) model.ExamLiveView {
	view := model.ExamLiveView{
		ExamID:      examID,
		Sessions:    make([]model.LiveSessionView, 0, len(inputs)),
		GeneratedAt: s.now(),
	}

	for _, in := range inputs {
		sess := in.Session
		if sess == nil || sess.State.Terminal() {
			continue
		}

		view.Sessions = append(view.Sessions, model.LiveSessionView{
			SessionID:    sess.ID,
			CandidateID:  sess.CandidateID,
			Score:        sess.Score,
			Bucket:       s.Bucket(sess.Score),
			WarningCount: sess.WarningCount,
			Online:       in.Online,
			AlertPending: s.AlertPending(sess.ID),
			RecentEvents: recentMessages(in.Events, s.recentLimit),
			UpdatedAt:    sess.UpdatedAt,
		})
	}

	sort.Slice(view.Sessions, func(i, j int) bool {
		a, b := view.Sessions[i], view.Sessions[j]
		if a.Bucket.Order() != b.Bucket.Order() {
			return a.Bucket.Order() < b.Bucket.Order()
		}
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.SessionID < b.SessionID
	})

	return view
}

// recentMessages takes the newest limit event messages, newest first.
func recentMessages(events []model.ViolationEvent, limit int) []string {
	if limit <= 0 || len(events) == 0 {
		return []string{}
	}

	start := len(events) - limit
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(events)-start)
	for i := len(events) - 1; i >= start; i-- {
		out = append(out, events[i].Message)
	}
	return out
}
