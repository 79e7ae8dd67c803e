package checksupplydemand

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"signalx/internal/analytics"
	"signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/common/metrics"
)

const (
	TaskType = "check-supply-demand"
)

type RiskChecker interface {
	CheckRegion(ctx context.Context, req analytics.CheckRequest) (*analytics.CheckResult, error)
}

type Handler struct {
	config       *Config
	checker      RiskChecker
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, checker RiskChecker, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		checker:      checker,
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

// Execute evaluates one region and alerts the admin when the tier calls for it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.DistrictName == "" {
		return nil, errors.NewValidationError("missing required field(s): districtName")
	}

	res, err := h.checker.CheckRegion(ctx, analytics.CheckRequest{
		District: input.DistrictName,
		Block:    input.BlockName,
		DryRun:   input.DryRun || h.config.DryRun,
	})
	if err != nil {
		return nil, err
	}

	e := res.Event
	return &Output{
		RiskLevel:   e.Tier,
		Supply:      e.Supply,
		Demand:      e.Demand,
		Ratio:       e.Ratio,
		IsEstimated: e.Estimated,
		NoData:      e.NoData,
		Analysis:    e.Rationale,
		AlertSent:   res.AlertSent,
		MessageID:   res.MessageID,
		Message:     res.Message,
		AlertError:  res.Error,
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
