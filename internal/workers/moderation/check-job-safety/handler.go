package checkjobsafety

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/common/metrics"
	"signalx/internal/moderation"
)

const (
	TaskType = "check-job-safety"
)

type Classifier interface {
	Classify(ctx context.Context, title, description string) moderation.Verdict
}

type Handler struct {
	config       *Config
	classifier   Classifier
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, classifier Classifier, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		classifier:   classifier,
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

// Execute classifies a posting. The classifier fails closed, so the only
// error is a missing title.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errors.NewValidationError("missing required field(s): title")
	}

	verdict := h.classifier.Classify(ctx, input.Title, input.Description)
	outcome := moderation.Decision(verdict)

	h.logger.Info("job classified", map[string]interface{}{
		"jobId":  input.JobID,
		"safe":   verdict.Safe,
		"source": string(verdict.Source),
	})

	return &Output{
		Safe:       verdict.Safe,
		Reason:     verdict.Reason,
		Source:     verdict.Source,
		Moderation: outcome.Moderation,
		Status:     outcome.Status,
		IsPublic:   outcome.IsPublic,
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
