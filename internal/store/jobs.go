package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"signalx/internal/models"
)

const jobColumns = `id, employer_id, title, description, district, block, salary, skills,
	employment_type, is_public, moderation, moderation_reason, status, publish_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.JobPosting, error) {
	var (
		job       models.JobPosting
		publishAt sql.NullTime
	)
	err := row.Scan(
		&job.ID, &job.EmployerID, &job.Title, &job.Description,
		&job.District, &job.Block, &job.Salary, pq.Array(&job.Skills),
		&job.EmploymentType, &job.IsPublic, &job.Moderation, &job.ModerationReason,
		&job.Status, &publishAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.PublishAt = timePtr(publishAt)
	return &job, nil
}

// CreateJob inserts job, assigning an id and timestamps when unset.
func (s *Store) CreateJob(ctx context.Context, job *models.JobPosting) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := s.now()
	job.CreatedAt, job.UpdatedAt = now, now
	if job.Skills == nil {
		job.Skills = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		job.ID, job.EmployerID, job.Title, job.Description,
		job.District, job.Block, job.Salary, pq.Array(job.Skills),
		job.EmploymentType, job.IsPublic, job.Moderation, job.ModerationReason,
		job.Status, nullTime(job.PublishAt), job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*models.JobPosting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, notFound(err)
	}
	return job, nil
}

// JobReview is the set of fields an admin review writes.
type JobReview struct {
	Status     models.ReviewStatus
	Moderation models.ModerationVerdict
	IsPublic   bool
	PublishAt  *time.Time
}

// UpdateJobReview overwrites the review fields of a job. Last write wins.
func (s *Store) UpdateJobReview(ctx context.Context, id string, review JobReview) (*models.JobPosting, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE jobs
		SET status = $2, moderation = $3, is_public = $4, publish_at = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+jobColumns,
		id, review.Status, review.Moderation, review.IsPublic, nullTime(review.PublishAt), s.now(),
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, notFound(err)
	}
	return job, nil
}

// PublishDue makes every approved, hidden job whose publish time has passed
// public and returns the jobs it changed. Running it twice is harmless: a
// published row no longer matches the predicate.
func (s *Store) PublishDue(ctx context.Context, now time.Time) ([]*models.JobPosting, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE jobs
		SET is_public = true, updated_at = $1
		WHERE status = 'approved' AND is_public = false
		  AND publish_at IS NOT NULL AND publish_at <= $1
		RETURNING `+jobColumns, now)
	if err != nil {
		return nil, fmt.Errorf("publish due jobs: %w", err)
	}
	defer rows.Close()

	var published []*models.JobPosting
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan published job: %w", err)
		}
		published = append(published, job)
	}
	return published, rows.Err()
}

// CountJobs counts postings in a district, narrowed to block when given.
// Rejected postings are not supply.
func (s *Store) CountJobs(ctx context.Context, district, block string) (int, error) {
	var n int
	var err error
	if block == "" {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM jobs WHERE district = $1 AND status <> 'rejected'`, district).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM jobs WHERE district = $1 AND block = $2 AND status <> 'rejected'`, district, block).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}
