package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"signalx/internal/alerts"
	"signalx/internal/analytics"
	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/validation"
	"signalx/internal/models"
	"signalx/internal/notify"
)

const (
	testEmailBasic     = "basic"
	testEmailRiskAlert = "risk-alert"
	testEmailDigest    = "digest"
)

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Mailer.Verify(r.Context()); err != nil {
		h.logger.Error("mail transport check failed", map[string]interface{}{
			"provider": h.deps.Mailer.Provider(),
			"error":    err,
		})
		jsonError(w, fmt.Sprintf("%s connection failed", h.deps.Mailer.Provider()), http.StatusInternalServerError)
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{
		"provider": h.deps.Mailer.Provider(),
		"message":  "mail transport is ready",
	})
}

func (h *Handler) sendTestEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To   string `json:"to"`
		Type string `json:"type"`
	}
	if err := decode(r, testEmailSchema, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !validation.ValidateEmail(req.To) {
		h.fail(w, r, apperrors.NewValidationError("to must be a valid email address"))
		return
	}
	if req.Type == "" {
		req.Type = testEmailBasic
	}

	msg, err := h.testMessage(req.Type, strings.TrimSpace(req.To))
	if err != nil {
		h.fail(w, r, apperrors.NewInternalError(err))
		return
	}
	id, err := notify.Deliver(r.Context(), h.deps.Mailer, msg, h.logger)
	if err != nil {
		h.fail(w, r, apperrors.NewNotificationSendError("test", err))
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{
		"messageId": id,
		"type":      req.Type,
		"to":        msg.To,
	})
}

// sampleEvent is the Purulia example: 45 postings against 523 workers.
func sampleEvent() *models.RiskAlertEvent {
	ratio := analytics.Ratio(45, 523)
	return &models.RiskAlertEvent{
		District:    "Purulia",
		Supply:      45,
		Demand:      523,
		Ratio:       ratio,
		Tier:        analytics.TierForRatio(ratio),
		Rationale:   "This is a test alert. No action is needed.",
		EvaluatedAt: time.Now().UTC(),
	}
}

func (h *Handler) testMessage(kind, to string) (notify.Message, error) {
	appURL := strings.TrimRight(h.deps.AppURL, "/")
	switch kind {
	case testEmailRiskAlert:
		e := sampleEvent()
		html, err := notify.Render(notify.TemplateRiskAlert, map[string]interface{}{"Event": e, "AppURL": appURL})
		return notify.Message{To: to, Subject: "[TEST] " + alerts.Subject(e), HTML: html}, err
	case testEmailDigest:
		low := &models.RiskAlertEvent{District: "Kolkata", Supply: 900, Demand: 1200, Ratio: 0.75, Tier: models.RiskLow}
		reports := []*models.RiskAlertEvent{sampleEvent(), low}
		html, err := notify.Render(notify.TemplateBulkDigest, map[string]interface{}{
			"Reports":  reports,
			"HighRisk": 1,
			"Other":    1,
			"AppURL":   appURL,
		})
		return notify.Message{To: to, Subject: "[TEST] 📊 Livelihood Risk Digest: 2 regions, 1 high risk", HTML: html}, err
	default:
		html, err := notify.Render(notify.TemplateTest, map[string]interface{}{
			"Kind":     kind,
			"Provider": h.deps.Mailer.Provider(),
			"SentAt":   time.Now().UTC().Format(time.RFC1123),
		})
		return notify.Message{To: to, Subject: "SignalX test email", HTML: html}, err
	}
}
