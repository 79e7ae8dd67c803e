// Package alerts tells administrators about regional livelihood risk.
package alerts

import (
	"context"
	"fmt"
	"strings"

	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/common/metrics"
	"signalx/internal/models"
	"signalx/internal/notify"
)

// Result of a single admin alert. A failure here is reported, never raised.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkResult of a digest send.
type BulkResult struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Reports    int `json:"reports"`
	HighRisk   int `json:"highRisk"`
}

type Dispatcher struct {
	mailer notify.Mailer
	admins []string
	appURL string
	logger logger.Logger
}

func NewDispatcher(mailer notify.Mailer, adminEmails []string, appURL string, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		mailer: mailer,
		admins: adminEmails,
		appURL: strings.TrimRight(appURL, "/"),
		logger: log.With(map[string]interface{}{"component": "alerts"}),
	}
}

// Subject is keyed by tier, e.g. "🚨 CRITICAL Livelihood Risk Alert: Purulia".
func Subject(e *models.RiskAlertEvent) string {
	icon := "⚡"
	switch e.Tier {
	case models.RiskCritical:
		icon = "🚨"
	case models.RiskHigh:
		icon = "⚠️"
	}
	return fmt.Sprintf("%s %s Livelihood Risk Alert: %s", icon, strings.ToUpper(string(e.Tier)), e.Region())
}

// SendSingle mails one event to the primary admin address.
func (d *Dispatcher) SendSingle(ctx context.Context, e *models.RiskAlertEvent) Result {
	res := d.sendSingle(ctx, e)
	metrics.AlertsDispatched.WithLabelValues("single", resultLabel(res.Success)).Inc()
	return res
}

func (d *Dispatcher) sendSingle(ctx context.Context, e *models.RiskAlertEvent) Result {
	if len(d.admins) == 0 || d.admins[0] == "" {
		err := apperrors.NewAdminEmailNotConfiguredError()
		d.logger.Error("risk alert not sent", map[string]interface{}{
			"region": e.Region(),
			"tier":   string(e.Tier),
			"error":  err,
		})
		return Result{Success: false, Error: err.Message}
	}

	html, err := notify.Render(notify.TemplateRiskAlert, map[string]interface{}{
		"Event":  e,
		"AppURL": d.appURL,
	})
	if err != nil {
		d.logger.Error("risk alert render failed", map[string]interface{}{"error": err})
		return Result{Success: false, Error: err.Error()}
	}

	id, err := notify.Deliver(ctx, d.mailer, notify.Message{
		To:      d.admins[0],
		Subject: Subject(e),
		HTML:    html,
	}, d.logger)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	d.logger.Info("risk alert sent", map[string]interface{}{
		"region":    e.Region(),
		"tier":      string(e.Tier),
		"messageId": id,
	})
	return Result{Success: true, MessageID: id}
}

// SendBulk mails one digest covering every report to each admin recipient.
func (d *Dispatcher) SendBulk(ctx context.Context, reports []*models.RiskAlertEvent) (BulkResult, error) {
	if len(reports) == 0 {
		return BulkResult{}, apperrors.NewValidationError("reports must not be empty")
	}
	if len(d.admins) == 0 || d.admins[0] == "" {
		return BulkResult{}, apperrors.NewAdminEmailNotConfiguredError()
	}

	highRisk := 0
	for _, r := range reports {
		if r.Tier == models.RiskHigh || r.Tier == models.RiskCritical {
			highRisk++
		}
	}

	html, err := notify.Render(notify.TemplateBulkDigest, map[string]interface{}{
		"Reports":  reports,
		"HighRisk": highRisk,
		"Other":    len(reports) - highRisk,
		"AppURL":   d.appURL,
	})
	if err != nil {
		return BulkResult{}, apperrors.NewInternalError(err)
	}

	subject := fmt.Sprintf("📊 Livelihood Risk Digest: %d regions, %d high risk", len(reports), highRisk)
	msgs := make([]notify.Message, 0, len(d.admins))
	for _, to := range d.admins {
		if to == "" {
			continue
		}
		msgs = append(msgs, notify.Message{To: to, Subject: subject, HTML: html})
	}

	sent := notify.SendAll(ctx, d.mailer, msgs, d.logger)
	metrics.AlertsDispatched.WithLabelValues("bulk", resultLabel(sent.Failed == 0)).Inc()

	d.logger.Info("risk digest sent", map[string]interface{}{
		"reports":    len(reports),
		"highRisk":   highRisk,
		"successful": sent.Successful,
		"failed":     sent.Failed,
	})

	return BulkResult{
		Successful: sent.Successful,
		Failed:     sent.Failed,
		Reports:    len(reports),
		HighRisk:   highRisk,
	}, nil
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
