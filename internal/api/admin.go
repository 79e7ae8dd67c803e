package api

import (
	"net/http"
	"time"

	"signalx/internal/analytics"
	apperrors "signalx/internal/common/errors"
	"signalx/internal/models"
)

func (h *Handler) checkSupplyDemand(w http.ResponseWriter, r *http.Request) {
	var req analytics.CheckRequest
	if err := decode(r, checkSupplyDemandSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.deps.Risk.CheckRegion(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	fields := map[string]interface{}{
		"data":      res.Event,
		"dryRun":    res.DryRun,
		"alertSent": res.AlertSent,
		"message":   res.Message,
	}
	if res.Subject != "" {
		fields["subject"] = res.Subject
	}
	if res.MessageID != "" {
		fields["messageId"] = res.MessageID
	}
	if res.Error != "" {
		fields["alertError"] = res.Error
	}
	jsonOK(w, http.StatusOK, fields)
}

func (h *Handler) sendBulkAlert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reports []*models.RiskAlertEvent `json:"reports"`
	}
	if err := decode(r, bulkAlertSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	for _, rep := range req.Reports {
		if rep == nil || rep.District == "" {
			h.fail(w, r, apperrors.NewValidationError("every report needs a districtName"))
			return
		}
	}

	res, err := h.deps.Alerts.SendBulk(r.Context(), req.Reports)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{
		"successful": res.Successful,
		"failed":     res.Failed,
		"reports":    res.Reports,
		"highRisk":   res.HighRisk,
	})
}

type reviewRequest struct {
	Approve   bool       `json:"approve"`
	PublishAt *time.Time `json:"publishAt,omitempty"`
}

func (h *Handler) reviewJob(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, reviewSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	job, err := h.deps.Jobs.Review(r.Context(), r.PathValue("id"), req.Approve, req.PublishAt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{"job": job})
}

func (h *Handler) reviewUser(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, reviewSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.deps.Users.Review(r.Context(), r.PathValue("id"), req.Approve)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{"user": user})
}
