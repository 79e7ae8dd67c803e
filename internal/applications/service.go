// Package applications covers a worker applying to a posting and the
// employer's decision on it.
package applications

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/models"
	"signalx/internal/notify"
	"signalx/internal/store"
)

type Store interface {
	GetJob(ctx context.Context, id string) (*models.JobPosting, error)
	GetWorker(ctx context.Context, id string) (*models.WorkerRecord, error)
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
	CreateApplication(ctx context.Context, a *models.ApplicationRecord) error
	GetApplication(ctx context.Context, id string) (*models.ApplicationRecord, error)
	DecideApplication(ctx context.Context, id string, status models.ApplicationStatus) (*models.ApplicationRecord, error)
}

type Service struct {
	store  Store
	mailer notify.Mailer
	appURL string
	logger logger.Logger
}

func NewService(st Store, mailer notify.Mailer, appURL string, log logger.Logger) *Service {
	return &Service{
		store:  st,
		mailer: mailer,
		appURL: strings.TrimRight(appURL, "/"),
		logger: log.With(map[string]interface{}{"component": "applications"}),
	}
}

// EmailResult is returned by the explicit notification operations.
type EmailResult struct {
	MessageID string `json:"messageId"`
	To        string `json:"to"`
}

// Apply records a pending application to a public posting. The employer
// email is attempted once and its failure only logged.
func (s *Service) Apply(ctx context.Context, workerID, jobID string) (*models.ApplicationRecord, error) {
	if workerID == "" || jobID == "" {
		return nil, apperrors.NewValidationError("missing required field(s): workerId, jobId")
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, mapStoreErr("job", jobID, "get_job", err)
	}
	if !job.Visible() {
		return nil, apperrors.NewValidationError("job is not open for applications")
	}
	if _, err := s.store.GetWorker(ctx, workerID); err != nil {
		return nil, mapStoreErr("worker", workerID, "get_worker", err)
	}

	app := &models.ApplicationRecord{WorkerID: workerID, JobID: jobID}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		if stderrors.Is(err, store.ErrConflict) {
			return nil, apperrors.NewValidationError("worker has already applied to this job")
		}
		return nil, apperrors.NewDatabaseInsertError("create_application", err)
	}

	if _, err := s.NotifyEmployer(ctx, app.ID, jobID); err != nil {
		s.logger.Warn("employer notification failed", map[string]interface{}{
			"applicationId": app.ID,
			"policy":        string(notify.FailurePolicy),
			"error":         err,
		})
	}
	return app, nil
}

// NotifyEmployer emails the job's employer about an application.
func (s *Service) NotifyEmployer(ctx context.Context, applicationID, jobID string) (*EmailResult, error) {
	if applicationID == "" || jobID == "" {
		return nil, apperrors.NewValidationError("missing required field(s): applicationId, jobId")
	}
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, mapStoreErr("application", applicationID, "get_application", err)
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, mapStoreErr("job", jobID, "get_job", err)
	}
	employer, err := s.store.GetUser(ctx, job.EmployerID)
	if err != nil {
		return nil, mapStoreErr("employer", job.EmployerID, "get_user", err)
	}
	if employer.Email == "" {
		return nil, apperrors.NewNotFoundError("employer email", job.EmployerID)
	}
	worker, err := s.store.GetWorker(ctx, app.WorkerID)
	if err != nil {
		return nil, mapStoreErr("worker", app.WorkerID, "get_worker", err)
	}

	html, err := notify.Render(notify.TemplateNewApplication, map[string]interface{}{
		"Job":           job,
		"EmployerName":  displayName(employer),
		"Worker":        worker,
		"ApplicationID": app.ID,
		"AppURL":        s.appURL,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	msg := notify.Message{
		To:      employer.Email,
		Subject: fmt.Sprintf("New application for %s", job.Title),
		HTML:    html,
	}
	id, err := notify.Deliver(ctx, s.mailer, msg, s.logger)
	if err != nil {
		return nil, apperrors.NewNotificationSendError("new_application", err)
	}
	return &EmailResult{MessageID: id, To: employer.Email}, nil
}

// Decide moves a pending application to accepted or rejected. Accepting
// credits the worker with one completed job. The worker email is
// attempted once; its failure never undoes the decision.
func (s *Service) Decide(ctx context.Context, applicationID string, status models.ApplicationStatus) (*models.ApplicationRecord, error) {
	if !status.IsDecision() {
		return nil, apperrors.NewValidationError("status must be accepted or rejected")
	}
	app, err := s.store.DecideApplication(ctx, applicationID, status)
	if err != nil {
		if stderrors.Is(err, store.ErrConflict) {
			return nil, apperrors.NewInvalidStatusTransitionError("application", "decided", string(status))
		}
		return nil, mapStoreErr("application", applicationID, "decide_application", err)
	}

	s.logger.Info("application decided", map[string]interface{}{
		"applicationId": app.ID,
		"status":        string(app.Status),
		"workerId":      app.WorkerID,
	})

	if _, err := s.sendStatus(ctx, app, status); err != nil {
		s.logger.Warn("status email failed", map[string]interface{}{
			"applicationId": app.ID,
			"policy":        string(notify.FailurePolicy),
			"error":         err,
		})
	}
	return app, nil
}

// SendStatusEmail tells the worker the outcome of an application.
func (s *Service) SendStatusEmail(ctx context.Context, applicationID string, status models.ApplicationStatus) (*EmailResult, error) {
	if applicationID == "" {
		return nil, apperrors.NewValidationError("missing required field(s): applicationId")
	}
	if !status.IsDecision() {
		return nil, apperrors.NewValidationError("status must be accepted or rejected")
	}
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, mapStoreErr("application", applicationID, "get_application", err)
	}
	return s.sendStatus(ctx, app, status)
}

func (s *Service) sendStatus(ctx context.Context, app *models.ApplicationRecord, status models.ApplicationStatus) (*EmailResult, error) {
	worker, err := s.store.GetWorker(ctx, app.WorkerID)
	if err != nil {
		return nil, mapStoreErr("worker", app.WorkerID, "get_worker", err)
	}
	if worker.Email == "" {
		return nil, apperrors.NewNotFoundError("worker email", worker.ID)
	}
	job, err := s.store.GetJob(ctx, app.JobID)
	if err != nil {
		return nil, mapStoreErr("job", app.JobID, "get_job", err)
	}

	accepted := status == models.ApplicationAccepted
	html, err := notify.Render(notify.TemplateApplicationStatus, map[string]interface{}{
		"Worker":   worker,
		"Accepted": accepted,
		"Job":      job,
		"AppURL":   s.appURL,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	subject := fmt.Sprintf("Update on your application: %s", job.Title)
	if accepted {
		subject = fmt.Sprintf("Application accepted: %s", job.Title)
	}
	id, err := notify.Deliver(ctx, s.mailer, notify.Message{To: worker.Email, Subject: subject, HTML: html}, s.logger)
	if err != nil {
		return nil, apperrors.NewNotificationSendError("application_status", err)
	}
	return &EmailResult{MessageID: id, To: worker.Email}, nil
}

func displayName(u *models.UserProfile) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Organization != "" {
		return u.Organization
	}
	return "there"
}

func mapStoreErr(resource, id, op string, err error) error {
	if stderrors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFoundError(resource, id)
	}
	return apperrors.NewDatabaseQueryError(op, err)
}
