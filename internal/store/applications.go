package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"signalx/internal/models"
)

// uniqueViolation is the postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

const applicationColumns = `id, worker_id, job_id, status, submitted_at, decided_at`

func scanApplication(row rowScanner) (*models.ApplicationRecord, error) {
	var (
		a         models.ApplicationRecord
		decidedAt sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.WorkerID, &a.JobID, &a.Status, &a.SubmittedAt, &decidedAt); err != nil {
		return nil, err
	}
	a.DecidedAt = timePtr(decidedAt)
	return &a, nil
}

func (s *Store) CreateApplication(ctx context.Context, a *models.ApplicationRecord) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Status = models.ApplicationPending
	a.SubmittedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (id, worker_id, job_id, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.WorkerID, a.JobID, a.Status, a.SubmittedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (*models.ApplicationRecord, error) {
	a, err := scanApplication(s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// DecideApplication moves a pending application to status. Accepting also
// bumps the worker's completed-job counter by one in the same transaction, so
// a repeated accept can never count twice. ErrConflict means the application
// was no longer pending.
func (s *Store) DecideApplication(ctx context.Context, id string, status models.ApplicationStatus) (*models.ApplicationRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin decision: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	a, err := scanApplication(tx.QueryRowContext(ctx, `
		UPDATE applications
		SET status = $2, decided_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING `+applicationColumns,
		id, status, s.now()))
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("lookup application: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	if status == models.ApplicationAccepted {
		res, err := tx.ExecContext(ctx, `UPDATE workers SET rating = rating + 1 WHERE id = $1`, a.WorkerID)
		if err != nil {
			return nil, fmt.Errorf("increment worker rating: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, ErrNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit decision: %w", err)
	}
	return a, nil
}
