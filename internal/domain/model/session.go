package model

import "time"

// State is a session lifecycle state. The lifecycle moves forward only;
// the single sanctioned backward edge is Submitting -> InProgress after a
// failed terminal write.
type State string

// Session lifecycle states.
const (
	StateIdle          State = "idle"
	StateCameraSetup   State = "camera-setup"
	StateReady         State = "ready"
	StateInProgress    State = "in-progress"
	StateSubmitting    State = "submitting"
	StateSubmitted     State = "submitted"
	StateAutoSubmitted State = "auto-submitted"
	StateCancelled     State = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case StateSubmitted, StateAutoSubmitted, StateCancelled:
		return true
	case StateIdle, StateCameraSetup, StateReady, StateInProgress, StateSubmitting:
		return false
	}
	return false
}

// SubmitTrigger identifies which path requested submission.
type SubmitTrigger string

// Submission triggers. All three converge on the same guarded path.
const (
	TriggerManual   SubmitTrigger = "manual"
	TriggerTimer    SubmitTrigger = "timer"
	TriggerWarnings SubmitTrigger = "warnings"
)

// Reason strings recorded on the session at submission.
const (
	ReasonManual      = "Manual submission"
	ReasonTimeExpired = "Time expired"
	ReasonMaxWarnings = "Too many warnings"
)

// ExamSession is the mutable session document. The engine owns all
// mutation; stores persist whatever they are handed.
type ExamSession struct {
	ID          string        `json:"id"`
	ExamID      string        `json:"exam_id"`
	CandidateID string        `json:"candidate_id"`
	State       State         `json:"state"`
	UploadMode  bool          `json:"upload_mode"`
	Duration    time.Duration `json:"duration_ns"`

	CreatedAt time.Time `json:"created_at"`
	StartedAt time.Time `json:"started_at,omitzero"`

	WarningCount int          `json:"warning_count"`
	Counts       map[Kind]int `json:"counts"`
	Score        int          `json:"score"`

	CameraDegraded   bool      `json:"camera_degraded"`
	SubmitReason     string    `json:"submit_reason,omitempty"`
	FlaggedForReview bool      `json:"flagged_for_review"`
	TerminalAt       time.Time `json:"terminal_at,omitzero"`
	UpdatedAt        time.Time `json:"updated_at"`

	// FrameRef is the newest observer thumbnail reference, refreshed
	// best-effort during the exam.
	FrameRef string `json:"frame_ref,omitempty"`

	// Analysis is attached after submission for upload-mode exams.
	Analysis *AnalysisReport `json:"analysis,omitempty"`
}

// Clone returns a deep copy safe to hand across goroutines.
func (s *ExamSession) Clone() *ExamSession {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Counts = make(map[Kind]int, len(s.Counts))
	for k, v := range s.Counts {
		dup.Counts[k] = v
	}
	if s.Analysis != nil {
		report := *s.Analysis
		dup.Analysis = &report
	}
	return &dup
}

// Remaining reports how much exam time is left at now. Zero duration
// means the countdown is not armed.
func (s *ExamSession) Remaining(now time.Time) time.Duration {
	if s.StartedAt.IsZero() || s.Duration <= 0 {
		return 0
	}
	left := s.Duration - now.Sub(s.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}
