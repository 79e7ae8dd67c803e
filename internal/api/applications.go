package api

import (
	"net/http"

	"signalx/internal/models"
)

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerID string `json:"workerId"`
		JobID    string `json:"jobId"`
	}
	if err := decode(r, applySchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	app, err := h.deps.Applications.Apply(r.Context(), req.WorkerID, req.JobID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusCreated, map[string]interface{}{"application": app})
}

func (h *Handler) decideApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.ApplicationStatus `json:"status"`
	}
	if err := decode(r, decisionSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	app, err := h.deps.Applications.Decide(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{"application": app})
}

func (h *Handler) notifyEmployer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ApplicationID string `json:"applicationId"`
		JobID         string `json:"jobId"`
	}
	if err := decode(r, notifyEmployerSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.deps.Applications.NotifyEmployer(r.Context(), req.ApplicationID, req.JobID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{"messageId": res.MessageID})
}

func (h *Handler) sendStatusEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ApplicationID string                   `json:"applicationId"`
		Status        models.ApplicationStatus `json:"status"`
	}
	if err := decode(r, statusEmailSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.deps.Applications.SendStatusEmail(r.Context(), req.ApplicationID, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{"messageId": res.MessageID})
}
