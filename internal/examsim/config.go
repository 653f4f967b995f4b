package examsim

import "time"

// Config holds configuration for the proctoring simulation
type Config struct {
	BaseURL     string        // Base URL of the service
	NumSessions int           // Number of candidate sessions to simulate
	NumExams    int           // Number of exams the sessions spread across
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for the generated traffic
	LogFile     string        // Log file for simulation output
	Verbose     bool          // Enable verbose logging
}

// Plan is the scripted behavior of one simulated candidate.
type Plan struct {
	CandidateID string           `json:"candidate_id"`
	ExamID      string           `json:"exam_id"`
	Profile     string           `json:"profile"`
	Triggers    []triggerRequest `json:"triggers"`
	Samples     []sampleRequest  `json:"samples"`
	Submit      bool             `json:"submit"`

	// SessionID is assigned once the session is created.
	SessionID string `json:"session_id,omitempty"`
}

// createSessionRequest opens a session for one candidate.
type createSessionRequest struct {
	ExamID          string `json:"exam_id"`
	CandidateID     string `json:"candidate_id"`
	DurationSeconds int    `json:"duration_seconds"`
	UploadMode      bool   `json:"upload_mode"`
}

// cameraRequest reports the simulated camera check.
type cameraRequest struct {
	Degraded bool `json:"degraded"`
}

// triggerRequest is one scripted anti-cheat trigger.
type triggerRequest struct {
	EventID string `json:"event_id"`
	Trigger string `json:"trigger"`
	Detail  string `json:"detail,omitempty"`
}

// objectPayload is one detected object inside a scripted sample.
type objectPayload struct {
	Class string  `json:"class"`
	Score float64 `json:"score"`
}

// sampleRequest is one scripted camera detection sample.
type sampleRequest struct {
	SampleID  string          `json:"sample_id"`
	FaceCount int             `json:"face_count"`
	Objects   []objectPayload `json:"objects,omitempty"`
	GazeAway  bool            `json:"gaze_away,omitempty"`
}

// sessionDoc mirrors the session document returned by the service.
type sessionDoc struct {
	ID           string         `json:"id"`
	ExamID       string         `json:"exam_id"`
	CandidateID  string         `json:"candidate_id"`
	State        string         `json:"state"`
	WarningCount int            `json:"warning_count"`
	Counts       map[string]int `json:"counts"`
	Score        int            `json:"score"`
	SubmitReason string         `json:"submit_reason"`
	Flagged      bool           `json:"flagged_for_review"`
}

// liveSession mirrors one row of the observer live view.
type liveSession struct {
	SessionID    string `json:"session_id"`
	CandidateID  string `json:"candidate_id"`
	Score        int    `json:"score"`
	RiskBucket   string `json:"risk_bucket"`
	WarningCount int    `json:"warning_count"`
	Online       bool   `json:"online"`
	AlertPending bool   `json:"alert_pending"`
}

// liveView mirrors the aggregated observer view of one exam.
type liveView struct {
	ExamID   string        `json:"exam_id"`
	Sessions []liveSession `json:"sessions"`
}

// statusResponse mirrors the plain acknowledgement responses.
type statusResponse struct {
	Status string `json:"status"`
}

// Stats holds simulation statistics
type Stats struct {
	SessionsPlanned    int
	SessionsStarted    int
	SessionsFailed     int
	TriggersSubmitted  int
	TriggersFailed     int
	SamplesSubmitted   int
	SamplesFailed      int
	SessionsSubmitted  int
	DocsRetrieved      int
	LiveViewsRetrieved int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
