package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"signalx/internal/common/config"
	"signalx/internal/common/logger"
)

// JobHandler is implemented by every workflow task handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// StartWorker opens a job worker for taskType. It returns nil when the worker is disabled.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
	return jobWorker
}
