// Package users manages employer and admin profiles.
package users

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"

	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/common/validation"
	"signalx/internal/models"
	"signalx/internal/store"
)

type Store interface {
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
	EnsureUser(ctx context.Context, u *models.UserProfile) (*models.UserProfile, error)
	UpsertAdmin(ctx context.Context, id, email string) error
	SubmitProfile(ctx context.Context, id string, d store.ProfileDetails, from []models.UserStatus) (*models.UserProfile, error)
	SetUserStatus(ctx context.Context, id string, from, to models.UserStatus) (*models.UserProfile, error)
}

type Service struct {
	store  Store
	logger logger.Logger
}

func NewService(st Store, log logger.Logger) *Service {
	return &Service{store: st, logger: log.With(map[string]interface{}{"component": "users"})}
}

// EnsureProfile creates the profile on first sign-in. An existing profile is returned untouched.
func (s *Service) EnsureProfile(ctx context.Context, id, email, name string) (*models.UserProfile, error) {
	if id == "" || !validation.ValidateEmail(email) {
		return nil, apperrors.NewValidationError("id and a valid email are required")
	}
	u, err := s.store.EnsureUser(ctx, &models.UserProfile{
		ID:          id,
		Email:       strings.ToLower(email),
		DisplayName: name,
		Role:        models.RoleUser,
		Status:      models.UserIncomplete,
	})
	if err != nil {
		return nil, apperrors.NewDatabaseInsertError("ensure_user", err)
	}
	return u, nil
}

// CompleteProfile submits employer details for admin approval.
func (s *Service) CompleteProfile(ctx context.Context, id string, d store.ProfileDetails) (*models.UserProfile, error) {
	d.DisplayName, d.Organization = strings.TrimSpace(d.DisplayName), strings.TrimSpace(d.Organization)
	if d.DisplayName == "" || d.Organization == "" {
		return nil, apperrors.NewValidationError("missing required field(s): displayName, organization")
	}
	if d.Phone != "" && !validation.ValidatePhone(d.Phone) {
		return nil, apperrors.NewValidationError("invalid phone number")
	}

	from := []models.UserStatus{}
	for _, st := range []models.UserStatus{models.UserIncomplete, models.UserRejected} {
		if st.CanTransition(models.UserPending) {
			from = append(from, st)
		}
	}
	u, err := s.store.SubmitProfile(ctx, id, d, from)
	if err != nil {
		return nil, s.mapErr(ctx, id, models.UserPending, err)
	}
	s.logger.Info("profile submitted for review", map[string]interface{}{"userId": id})
	return u, nil
}

// Review is the admin approval of a pending profile.
func (s *Service) Review(ctx context.Context, id string, approve bool) (*models.UserProfile, error) {
	to := models.UserRejected
	if approve {
		to = models.UserApproved
	}
	if !models.UserPending.CanTransition(to) {
		return nil, apperrors.NewInvalidStatusTransitionError("user", string(models.UserPending), string(to))
	}
	u, err := s.store.SetUserStatus(ctx, id, models.UserPending, to)
	if err != nil {
		return nil, s.mapErr(ctx, id, to, err)
	}
	s.logger.Info("profile reviewed", map[string]interface{}{"userId": id, "status": string(to)})
	return u, nil
}

// BootstrapAdmin creates or promotes the default admin account. The id is
// derived from the email so every replica agrees on it.
func (s *Service) BootstrapAdmin(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	if !validation.ValidateEmail(email) {
		return apperrors.NewValidationError("default admin email is invalid")
	}
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(email)).String()
	if err := s.store.UpsertAdmin(ctx, id, email); err != nil {
		return apperrors.NewDatabaseInsertError("upsert_admin", err)
	}
	s.logger.Info("default admin ensured", map[string]interface{}{"email": email})
	return nil
}

func (s *Service) mapErr(ctx context.Context, id string, to models.UserStatus, err error) error {
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		return apperrors.NewNotFoundError("user", id)
	case stderrors.Is(err, store.ErrConflict):
		current := "unknown"
		if u, getErr := s.store.GetUser(ctx, id); getErr == nil {
			current = string(u.Status)
		}
		return apperrors.NewInvalidStatusTransitionError("user", current, string(to))
	default:
		return apperrors.NewDatabaseQueryError("update_user", err)
	}
}
