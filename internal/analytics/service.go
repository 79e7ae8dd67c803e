package analytics

import (
	"context"

	"signalx/internal/alerts"
	"signalx/internal/common/logger"
	"signalx/internal/models"
)

// AlertSender delivers a single admin alert.
type AlertSender interface {
	SendSingle(ctx context.Context, e *models.RiskAlertEvent) alerts.Result
}

// CheckRequest mirrors the check-supply-demand request body.
type CheckRequest struct {
	District string `json:"districtName"`
	Block    string `json:"blockName,omitempty"`
	DryRun   bool   `json:"dryRun,omitempty"`
}

// CheckResult reports what a region check did.
type CheckResult struct {
	Event     *models.RiskAlertEvent `json:"data"`
	DryRun    bool                   `json:"dryRun"`
	AlertSent bool                   `json:"alertSent"`
	Subject   string                 `json:"subject,omitempty"`
	MessageID string                 `json:"messageId,omitempty"`
	Message   string                 `json:"message"`
	Error     string                 `json:"alertError,omitempty"`
}

// Service evaluates a region and alerts the admin when warranted.
type Service struct {
	evaluator *Evaluator
	alerts    AlertSender
	logger    logger.Logger
}

func NewService(evaluator *Evaluator, sender AlertSender, log logger.Logger) *Service {
	return &Service{evaluator: evaluator, alerts: sender, logger: log}
}

func (s *Service) Evaluator() *Evaluator { return s.evaluator }

// CheckRegion evaluates then, unless DryRun, dispatches a single alert. Alert
// delivery failure is reported in the result; the evaluation still stands.
func (s *Service) CheckRegion(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	event, err := s.evaluator.Evaluate(ctx, req.District, req.Block)
	if err != nil {
		return nil, err
	}

	res := &CheckResult{Event: event, DryRun: req.DryRun}
	if !ShouldAlert(event) {
		res.Message = "no alert needed"
		if event.NoData {
			res.Message = "no data available for region"
		}
		return res, nil
	}

	res.Subject = alerts.Subject(event)
	if req.DryRun {
		res.Message = "dry run: alert not sent"
		return res, nil
	}

	sent := s.alerts.SendSingle(ctx, event)
	res.AlertSent = sent.Success
	res.MessageID = sent.MessageID
	res.Error = sent.Error
	if sent.Success {
		res.Message = "alert sent"
	} else {
		res.Message = "alert not sent"
	}
	return res, nil
}
