package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/session"
)

// SessionsHandler serves the candidate-facing session lifecycle routes.
type SessionsHandler struct {
	svc Service
}

// NewSessionsHandler creates a sessions handler backed by svc.
func NewSessionsHandler(svc Service) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

// HandleCreate serves POST /sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	duration := time.Duration(req.DurationSeconds) * time.Second
	doc, err := h.svc.CreateSession(r.Context(), req.ExamID, req.CandidateID, duration, req.UploadMode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// HandleGet serves GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleEvents serves GET /sessions/{id}/events.
func (h *SessionsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.SessionEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if events == nil {
		events = []model.ViolationEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleAcknowledge serves POST /sessions/{id}/acknowledge.
func (h *SessionsHandler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Acknowledge(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleCamera serves POST /sessions/{id}/camera.
func (h *SessionsHandler) HandleCamera(w http.ResponseWriter, r *http.Request) {
	var req cameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := h.svc.ValidateCamera(r.Context(), r.PathValue("id"), req.Degraded); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleStart serves POST /sessions/{id}/start.
func (h *SessionsHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StartExam(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleSample serves POST /sessions/{id}/samples.
func (h *SessionsHandler) HandleSample(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.svc.PushSample(r.Context(), r.PathValue("id"), req.toSample(time.Now())); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted"})
}

// HandleTrigger serves POST /sessions/{id}/triggers.
func (h *SessionsHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.svc.Trigger(r.Context(), r.PathValue("id"), req.EventID, req.Trigger, req.Detail); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "accepted"})
}

// HandleSubmit serves POST /sessions/{id}/submit. A submission that
// loses the trigger race reports 202: the winner's terminal write is
// still running and the client should poll the session.
func (h *SessionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.Submit(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSubmissionInFlight) {
			writeJSON(w, http.StatusAccepted, statusResponse{Status: "submitting"})
			return
		}
		writeServiceError(w, err)
		return
	}

	doc, err := h.svc.Session(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusOK, statusResponse{Status: "submitted"})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleCancel serves POST /sessions/{id}/cancel.
func (h *SessionsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelSession(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "cancelled"})
}

// HandleAlertAck serves POST /sessions/{id}/alert-ack.
func (h *SessionsHandler) HandleAlertAck(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AcknowledgeAlert(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
