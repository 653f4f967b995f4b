package model

import "time"

// RiskBucket groups sessions for the observer dashboard.
type RiskBucket string

// Risk buckets, calmest first.
const (
	RiskLow      RiskBucket = "low"
	RiskMedium   RiskBucket = "medium"
	RiskHigh     RiskBucket = "high"
	RiskCritical RiskBucket = "critical"
)

// Order returns the sort weight of a bucket; critical sorts first.
func (b RiskBucket) Order() int {
	switch b {
	case RiskCritical:
		return 0
	case RiskHigh:
		return 1
	case RiskMedium:
		return 2
	case RiskLow:
		return 3
	}
	return 4
}

// LiveSessionView is one row of the live observer view.
type LiveSessionView struct {
	SessionID    string     `json:"session_id"`
	CandidateID  string     `json:"candidate_id"`
	Score        int        `json:"score"`
	Bucket       RiskBucket `json:"risk_bucket"`
	WarningCount int        `json:"warning_count"`
	Online       bool       `json:"online"`
	AlertPending bool       `json:"alert_pending"`
	RecentEvents []string   `json:"recent_events"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ExamLiveView aggregates all active sessions of one exam, sorted
// critical-first.
type ExamLiveView struct {
	ExamID      string            `json:"exam_id"`
	Sessions    []LiveSessionView `json:"sessions"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// NotificationType tags entries in the pending-notification queue.
type NotificationType string

// Notification types.
const (
	NotifyWarning   NotificationType = "warning"
	NotifyLifecycle NotificationType = "lifecycle"
	NotifyAlert     NotificationType = "alert"
)

// Notification is an observer-facing message. Detection paths enqueue
// these; a consumer tick drains them, so signal handling never blocks
// on delivery.
type Notification struct {
	Type      NotificationType `json:"type"`
	SessionID string           `json:"session_id"`
	ExamID    string           `json:"exam_id"`
	Message   string           `json:"message"`
	At        time.Time        `json:"at"`
}

// AnalysisReport holds the best-effort result of post-submission
// document analysis for upload-mode exams.
type AnalysisReport struct {
	SessionID     string    `json:"session_id"`
	ExtractedText string    `json:"extracted_text"`
	AIConfidence  float64   `json:"ai_confidence"`
	AnalyzedAt    time.Time `json:"analyzed_at"`
}
