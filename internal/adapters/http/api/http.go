// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
)

// Service bundles the session operations HTTP handlers depend on.
// Using an interface bundle keeps the handler layer loosely coupled to
// the application service.
type Service interface {
	CreateSession(ctx context.Context, examID, candidateID string, duration time.Duration, uploadMode bool) (*model.ExamSession, error)
	Acknowledge(ctx context.Context, sessionID string) error
	ValidateCamera(ctx context.Context, sessionID string, degraded bool) error
	StartExam(ctx context.Context, sessionID string) error
	PushSample(ctx context.Context, sessionID string, sample model.DetectionSample) error
	Trigger(ctx context.Context, sessionID, eventID, trigger, detail string) error
	Submit(ctx context.Context, sessionID string) error
	CancelSession(ctx context.Context, sessionID string) error
	AcknowledgeAlert(ctx context.Context, sessionID string) error
	Session(ctx context.Context, sessionID string) (*model.ExamSession, error)
	SessionEvents(ctx context.Context, sessionID string) ([]model.ViolationEvent, error)
	LiveView(ctx context.Context, examID string) (model.ExamLiveView, error)
}

// Server wires HTTP routes for the proctoring API.
type Server struct {
	sessionsHandler  *SessionsHandler
	liveHandler      *LiveHandler
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(svc Service, statsProvider StatsProvider) *Server {
	return &Server{
		sessionsHandler:  NewSessionsHandler(svc),
		liveHandler:      NewLiveHandler(svc),
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		dashboardHandler: newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions_create"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "sessions_get"))
	mux.HandleFunc("GET /sessions/{id}/events", MetricsMiddleware(s.sessionsHandler.HandleEvents, "sessions_events"))
	mux.HandleFunc("POST /sessions/{id}/acknowledge", MetricsMiddleware(s.sessionsHandler.HandleAcknowledge, "sessions_acknowledge"))
	mux.HandleFunc("POST /sessions/{id}/camera", MetricsMiddleware(s.sessionsHandler.HandleCamera, "sessions_camera"))
	mux.HandleFunc("POST /sessions/{id}/start", MetricsMiddleware(s.sessionsHandler.HandleStart, "sessions_start"))
	mux.HandleFunc("POST /sessions/{id}/samples", MetricsMiddleware(s.sessionsHandler.HandleSample, "sessions_samples"))
	mux.HandleFunc("POST /sessions/{id}/triggers", MetricsMiddleware(s.sessionsHandler.HandleTrigger, "sessions_triggers"))
	mux.HandleFunc("POST /sessions/{id}/submit", MetricsMiddleware(s.sessionsHandler.HandleSubmit, "sessions_submit"))
	mux.HandleFunc("POST /sessions/{id}/cancel", MetricsMiddleware(s.sessionsHandler.HandleCancel, "sessions_cancel"))
	mux.HandleFunc("POST /sessions/{id}/alert-ack", MetricsMiddleware(s.sessionsHandler.HandleAlertAck, "sessions_alert_ack"))

	mux.HandleFunc("GET /exams/{examID}/live", MetricsMiddleware(s.liveHandler.HandleLiveView, "exams_live"))
}

// createSessionRequest mirrors the OpenAPI schema for POST /sessions.
type createSessionRequest struct {
	ExamID          string `json:"exam_id"`
	CandidateID     string `json:"candidate_id"`
	DurationSeconds int    `json:"duration_seconds"`
	UploadMode      bool   `json:"upload_mode"`
}

func (r createSessionRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ExamID) == "":
		return errors.New("missing exam_id")
	case strings.TrimSpace(r.CandidateID) == "":
		return errors.New("missing candidate_id")
	case r.DurationSeconds < 0:
		return errors.New("duration_seconds must not be negative")
	}
	return nil
}

// cameraRequest carries the camera check outcome for POST .../camera.
type cameraRequest struct {
	Degraded bool `json:"degraded"`
}

// triggerRequest mirrors the OpenAPI schema for POST .../triggers.
type triggerRequest struct {
	EventID string `json:"event_id"`
	Trigger string `json:"trigger"`
	Detail  string `json:"detail"`
}

func (r triggerRequest) validate() error {
	if strings.TrimSpace(r.Trigger) == "" {
		return errors.New("missing trigger")
	}
	return nil
}

// boxPayload is a normalized bounding box in [0,1] coordinates.
type boxPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// objectPayload is one prohibited-object hit in a sample.
type objectPayload struct {
	Class string     `json:"class"`
	Score float64    `json:"score"`
	Box   boxPayload `json:"box"`
}

// sampleRequest mirrors the OpenAPI schema for POST .../samples.
type sampleRequest struct {
	SampleID        string          `json:"sample_id"`
	FaceCount       int             `json:"face_count"`
	FaceConfidences []float64       `json:"face_confidences"`
	FaceBoxes       []boxPayload    `json:"face_boxes"`
	Objects         []objectPayload `json:"objects"`
	GazeAway        bool            `json:"gaze_away"`
	FrameRef        string          `json:"frame_ref"`
	CapturedAt      string          `json:"captured_at"`
}

func (r sampleRequest) validate() error {
	if r.FaceCount < 0 {
		return errors.New("face_count must not be negative")
	}
	if strings.TrimSpace(r.CapturedAt) != "" {
		if _, err := time.Parse(time.RFC3339, r.CapturedAt); err != nil {
			return errors.New("invalid captured_at; must be RFC3339")
		}
	}
	return nil
}

// toSample converts the request body into the domain sample shape. A
// missing captured_at defaults to the ingest time.
func (r sampleRequest) toSample(now time.Time) model.DetectionSample {
	capturedAt := now
	if ts, err := time.Parse(time.RFC3339, r.CapturedAt); err == nil && !ts.IsZero() {
		capturedAt = ts
	}

	boxes := make([]model.BoundingBox, 0, len(r.FaceBoxes))
	for _, b := range r.FaceBoxes {
		boxes = append(boxes, model.BoundingBox{X: b.X, Y: b.Y, W: b.W, H: b.H})
	}
	objects := make([]model.DetectedObject, 0, len(r.Objects))
	for _, o := range r.Objects {
		objects = append(objects, model.DetectedObject{
			Class: o.Class,
			Score: o.Score,
			Box:   model.BoundingBox{X: o.Box.X, Y: o.Box.Y, W: o.Box.W, H: o.Box.H},
		})
	}

	return model.DetectionSample{
		SampleID:        r.SampleID,
		FaceCount:       r.FaceCount,
		FaceConfidences: r.FaceConfidences,
		FaceBoxes:       boxes,
		Objects:         objects,
		GazeAway:        r.GazeAway,
		FrameRef:        r.FrameRef,
		CapturedAt:      capturedAt,
	}
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
