// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler fails or throws Zeebe jobs according to the error code's retry budget.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError retries transient failures and throws a BPMN error otherwise.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := AsStandard(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logError(job, stdErr, bpmnErr)

	if bpmnErr.Retries > 0 && job.Retries > 0 {
		h.failJobWithRetries(ctx, client, job, bpmnErr)
		return
	}
	h.throwBPMNError(ctx, client, job, bpmnErr)
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	// never hand back more retries than the engine still allows
	retries := bpmnErr.Retries
	if int(job.Retries)-1 < retries {
		retries = int(job.Retries) - 1
	}

	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		ErrorMessage(bpmnErr.Message)

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(vars)); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          bpmnErr.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
