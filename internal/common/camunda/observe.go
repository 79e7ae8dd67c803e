package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"

	"signalx/internal/common/observability"
)

// HandlerFunc adapts a plain function to JobHandler.
type HandlerFunc func(client worker.JobClient, job entities.Job)

func (f HandlerFunc) Handle(client worker.JobClient, job entities.Job) { f(client, job) }

// Observe wraps handler with a span and the otel job counters. The handler
// reports its own outcome to Zeebe, so jobs are recorded as "handled".
func Observe(obs *observability.Observability, taskType string, handler JobHandler) JobHandler {
	if obs == nil {
		return handler
	}
	return HandlerFunc(func(client worker.JobClient, job entities.Job) {
		ctx, span := obs.StartSpan(context.Background(), taskType,
			attribute.Int64("job.key", job.GetKey()),
			attribute.String("bpmn.process_id", job.GetBpmnProcessId()),
		)
		defer span.End()

		start := time.Now()
		handler.Handle(client, job)
		obs.RecordJobProcessed(ctx, taskType, "handled")
		obs.RecordJobDuration(ctx, taskType, time.Since(start), "handled")
	})
}
