package sendbulkalert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"signalx/internal/alerts"
	"signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/common/metrics"
	"signalx/internal/models"
)

const (
	TaskType = "send-bulk-alert"
)

type BulkAlerter interface {
	SendBulk(ctx context.Context, reports []*models.RiskAlertEvent) (alerts.BulkResult, error)
}

type Handler struct {
	config       *Config
	alerts       BulkAlerter
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, alerter BulkAlerter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		alerts:       alerter,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute sends one digest. Per-recipient failures are counted in the
// output; only a digest that cannot be sent at all is an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Reports) == 0 {
		return nil, errors.NewValidationError("missing required field(s): reports")
	}
	if len(input.Reports) > h.config.MaxReports {
		return nil, errors.NewValidationError(fmt.Sprintf("at most %d reports per digest", h.config.MaxReports))
	}
	for i, r := range input.Reports {
		if r == nil || r.District == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("reports[%d].districtName is required", i))
		}
	}

	res, err := h.alerts.SendBulk(ctx, input.Reports)
	if err != nil {
		return nil, err
	}
	return &Output{
		Success:    res.Failed == 0,
		Successful: res.Successful,
		Failed:     res.Failed,
		Reports:    res.Reports,
		HighRisk:   res.HighRisk,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandard(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
