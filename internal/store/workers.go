package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"signalx/internal/models"
)

const workerColumns = `id, name, district, block, skills, email, phone, rating, created_at`

func scanWorker(row rowScanner) (*models.WorkerRecord, error) {
	var w models.WorkerRecord
	if err := row.Scan(&w.ID, &w.Name, &w.District, &w.Block, pq.Array(&w.Skills),
		&w.Email, &w.Phone, &w.Rating, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) CreateWorker(ctx context.Context, w *models.WorkerRecord) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Skills == nil {
		w.Skills = []string{}
	}
	w.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (`+workerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.Name, w.District, w.Block, pq.Array(w.Skills), w.Email, w.Phone, w.Rating, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert worker: %w", err)
	}
	return nil
}

func (s *Store) GetWorker(ctx context.Context, id string) (*models.WorkerRecord, error) {
	w, err := scanWorker(s.db.QueryRowContext(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return w, nil
}

// CountWorkers counts registered workers in a district, narrowed to block when given.
func (s *Store) CountWorkers(ctx context.Context, district, block string) (int, error) {
	var n int
	var err error
	if block == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workers WHERE district = $1`, district).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM workers WHERE district = $1 AND block = $2`, district, block).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count workers: %w", err)
	}
	return n, nil
}

// ListMatchingWorkers returns workers in district sharing at least one skill.
// An empty skill list matches every worker in the district.
func (s *Store) ListMatchingWorkers(ctx context.Context, district string, skills []string) ([]*models.WorkerRecord, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE district = $1 ORDER BY created_at`
	args := []interface{}{district}
	if len(skills) > 0 {
		query = `SELECT ` + workerColumns + ` FROM workers WHERE district = $1 AND skills && $2 ORDER BY created_at`
		args = append(args, pq.Array(skills))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matching workers: %w", err)
	}
	defer rows.Close()

	var out []*models.WorkerRecord
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
