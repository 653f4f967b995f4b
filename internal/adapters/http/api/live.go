package api

import "net/http"

// LiveHandler serves the observer-facing live aggregation view.
type LiveHandler struct {
	svc Service
}

// NewLiveHandler creates a live view handler backed by svc.
func NewLiveHandler(svc Service) *LiveHandler {
	return &LiveHandler{svc: svc}
}

// HandleLiveView serves GET /exams/{examID}/live.
func (h *LiveHandler) HandleLiveView(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.LiveView(r.Context(), r.PathValue("examID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
