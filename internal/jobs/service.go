// Package jobs owns the job posting lifecycle.
package jobs

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/common/metrics"
	"signalx/internal/models"
	"signalx/internal/moderation"
	"signalx/internal/search"
	"signalx/internal/store"
)

type Store interface {
	CreateJob(ctx context.Context, job *models.JobPosting) error
	GetJob(ctx context.Context, id string) (*models.JobPosting, error)
	UpdateJobReview(ctx context.Context, id string, review store.JobReview) (*models.JobPosting, error)
	PublishDue(ctx context.Context, now time.Time) ([]*models.JobPosting, error)
	ListMatchingWorkers(ctx context.Context, district string, skills []string) ([]*models.WorkerRecord, error)
}

type Classifier interface {
	Classify(ctx context.Context, title, description string) moderation.Verdict
}

// Index mirrors public postings into the search backend.
type Index interface {
	Sync(ctx context.Context, job *models.JobPosting) error
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

type Service struct {
	store      Store
	classifier Classifier
	index      Index
	alerts     *Alerter
	logger     logger.Logger
	now        func() time.Time
}

// NewService wires the job lifecycle. index may be nil when search is disabled.
func NewService(st Store, classifier Classifier, index Index, alerter *Alerter, log logger.Logger) *Service {
	return &Service{
		store:      st,
		classifier: classifier,
		index:      index,
		alerts:     alerter,
		logger:     log.With(map[string]interface{}{"component": "jobs"}),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type CreateInput struct {
	EmployerID     string     `json:"employerId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	District       string     `json:"district"`
	Block          string     `json:"block,omitempty"`
	Salary         string     `json:"salary,omitempty"`
	Skills         []string   `json:"skills,omitempty"`
	EmploymentType string     `json:"employmentType,omitempty"`
	PublishAt      *time.Time `json:"publishAt,omitempty"`
}

type CreateResult struct {
	Job     *models.JobPosting `json:"job"`
	Verdict moderation.Verdict `json:"moderation"`
	// Flagged tells the submitter the posting awaits admin review.
	Flagged bool `json:"flagged"`
}

// Create screens and stores a posting. A safe posting with a future
// publish time is approved but stays hidden until the publish sweep.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	in.Title, in.District = strings.TrimSpace(in.Title), strings.TrimSpace(in.District)
	if in.EmployerID == "" || in.Title == "" || in.District == "" {
		return nil, apperrors.NewValidationError("missing required field(s): employerId, title, district")
	}

	verdict := s.classifier.Classify(ctx, in.Title, in.Description)
	outcome := moderation.Decision(verdict)

	job := &models.JobPosting{
		EmployerID:       in.EmployerID,
		Title:            in.Title,
		Description:      in.Description,
		District:         in.District,
		Block:            strings.TrimSpace(in.Block),
		Salary:           in.Salary,
		Skills:           normalizeSkills(in.Skills),
		EmploymentType:   in.EmploymentType,
		IsPublic:         outcome.IsPublic,
		Moderation:       outcome.Moderation,
		ModerationReason: verdict.Reason,
		Status:           outcome.Status,
		PublishAt:        in.PublishAt,
	}
	if job.IsPublic && in.PublishAt != nil && in.PublishAt.After(s.now()) {
		job.IsPublic = false
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, apperrors.NewDatabaseInsertError("create_job", err)
	}
	s.syncIndex(ctx, job)

	s.logger.Info("job created", map[string]interface{}{
		"jobId":      job.ID,
		"moderation": string(job.Moderation),
		"status":     string(job.Status),
		"public":     job.IsPublic,
	})
	return &CreateResult{Job: job, Verdict: verdict, Flagged: !verdict.Safe}, nil
}

// Review is the admin decision on a posting. Approval publishes at once
// unless publishAt lies in the future.
func (s *Service) Review(ctx context.Context, id string, approve bool, publishAt *time.Time) (*models.JobPosting, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, mapStoreErr("job", id, "get_job", err)
	}

	review := store.JobReview{Moderation: job.Moderation, PublishAt: job.PublishAt}
	if publishAt != nil {
		review.PublishAt = publishAt
	}
	if approve {
		review.Status = models.ReviewApproved
		review.IsPublic = review.PublishAt == nil || !review.PublishAt.After(s.now())
	} else {
		review.Status = models.ReviewRejected
		review.Moderation = models.VerdictRejected
		review.IsPublic = false
	}

	updated, err := s.store.UpdateJobReview(ctx, id, review)
	if err != nil {
		return nil, mapStoreErr("job", id, "review_job", err)
	}
	s.syncIndex(ctx, updated)

	s.logger.Info("job reviewed", map[string]interface{}{
		"jobId":    id,
		"approved": approve,
		"public":   updated.IsPublic,
	})
	return updated, nil
}

// PublishDue flips every due, approved posting to public. Safe to run
// concurrently with itself and repeatedly.
func (s *Service) PublishDue(ctx context.Context) (int, error) {
	published, err := s.store.PublishDue(ctx, s.now())
	if err != nil {
		return 0, apperrors.NewDatabaseQueryError("publish_due", err)
	}
	for _, job := range published {
		s.syncIndex(ctx, job)
	}
	metrics.JobsPublished.Add(float64(len(published)))
	if len(published) > 0 {
		s.logger.Info("scheduled jobs published", map[string]interface{}{"count": len(published)})
	}
	return len(published), nil
}

// Search queries the public job index.
func (s *Service) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	if s.index == nil {
		return nil, apperrors.NewSearchQueryError(stderrors.New("search is disabled"))
	}
	return s.index.Search(ctx, q)
}

// AlertRequest names a stored job or carries the job data inline.
type AlertRequest struct {
	JobID   string             `json:"jobId,omitempty"`
	JobData *models.JobPosting `json:"jobData,omitempty"`
}

// SendAlerts notifies workers matching the posting's district and skills.
func (s *Service) SendAlerts(ctx context.Context, req AlertRequest) (*AlertResult, error) {
	job := req.JobData
	if req.JobID != "" {
		stored, err := s.store.GetJob(ctx, req.JobID)
		if err != nil {
			return nil, mapStoreErr("job", req.JobID, "get_job", err)
		}
		if !stored.Visible() {
			return nil, apperrors.NewValidationError("job is not publicly visible")
		}
		job = stored
	}
	if job == nil || strings.TrimSpace(job.District) == "" {
		return nil, apperrors.NewValidationError("missing required field(s): jobData.district")
	}
	if job.ID == "" {
		job.ID = req.JobID
	}

	workers, err := s.store.ListMatchingWorkers(ctx, job.District, normalizeSkills(job.Skills))
	if err != nil {
		return nil, apperrors.NewDatabaseQueryError("list_matching_workers", err)
	}
	return s.alerts.Notify(ctx, job, workers), nil
}

func (s *Service) syncIndex(ctx context.Context, job *models.JobPosting) {
	if s.index == nil {
		return
	}
	if err := s.index.Sync(ctx, job); err != nil {
		s.logger.Warn("search index sync failed", map[string]interface{}{"jobId": job.ID, "error": err})
	}
}

func normalizeSkills(skills []string) []string {
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, sk := range skills {
		sk = strings.ToLower(strings.TrimSpace(sk))
		if sk == "" || seen[sk] {
			continue
		}
		seen[sk] = true
		out = append(out, sk)
	}
	return out
}

func mapStoreErr(resource, id, op string, err error) error {
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		return apperrors.NewNotFoundError(resource, id)
	case stderrors.Is(err, store.ErrConflict):
		return apperrors.NewInvalidStatusTransitionError(resource, "current", "requested")
	default:
		return apperrors.NewDatabaseQueryError(op, err)
	}
}
