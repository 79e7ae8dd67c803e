package store

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"signalx/internal/models"
)

const userColumns = `id, email, display_name, role, status, organization, phone, district, created_at, updated_at`

func scanUser(row rowScanner) (*models.UserProfile, error) {
	var u models.UserProfile
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.Status,
		&u.Organization, &u.Phone, &u.District, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// EnsureUser inserts u unless a row with the same id exists, then returns the stored row.
func (s *Store) EnsureUser(ctx context.Context, u *models.UserProfile) (*models.UserProfile, error) {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Email, u.DisplayName, u.Role, u.Status, now)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

// UpsertAdmin creates or promotes the account with email to an approved admin.
func (s *Store) UpsertAdmin(ctx context.Context, id, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, role, status, created_at, updated_at)
		VALUES ($1, $2, 'Administrator', 'admin', 'approved', $3, $3)
		ON CONFLICT (email) DO UPDATE SET role = 'admin', status = 'approved', updated_at = $3`,
		id, email, s.now())
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}

// ProfileDetails are the fields an employer fills in to request approval.
type ProfileDetails struct {
	DisplayName  string
	Organization string
	Phone        string
	District     string
}

// SubmitProfile stores details and moves the user to pending, but only from one of the from states.
func (s *Store) SubmitProfile(ctx context.Context, id string, d ProfileDetails, from []models.UserStatus) (*models.UserProfile, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users
		SET display_name = $2, organization = $3, phone = $4, district = $5,
		    status = 'pending', updated_at = $6
		WHERE id = $1 AND status = ANY($7)
		RETURNING `+userColumns,
		id, d.DisplayName, d.Organization, d.Phone, d.District, s.now(), statusArray(from)))
	if err != nil {
		return nil, s.conditionalMiss(ctx, id, err)
	}
	return u, nil
}

// SetUserStatus moves a user from one status to another. ErrConflict means
// the row exists but was not in from.
func (s *Store) SetUserStatus(ctx context.Context, id string, from, to models.UserStatus) (*models.UserProfile, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+userColumns,
		id, from, to, s.now()))
	if err != nil {
		return nil, s.conditionalMiss(ctx, id, err)
	}
	return u, nil
}

func (s *Store) conditionalMiss(ctx context.Context, id string, err error) error {
	if notFound(err) != ErrNotFound {
		return fmt.Errorf("update user: %w", err)
	}
	if _, getErr := s.GetUser(ctx, id); getErr != nil {
		return getErr
	}
	return ErrConflict
}

func statusArray(statuses []models.UserStatus) interface{} {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return pq.Array(out)
}
