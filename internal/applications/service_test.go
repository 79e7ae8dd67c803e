package applications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/models"
	"signalx/internal/notify"
	"signalx/internal/store"
)

// ==========================
// Mocks
// ==========================

type MockStore struct {
	jobs         map[string]*models.JobPosting
	workers      map[string]*models.WorkerRecord
	users        map[string]*models.UserProfile
	applications map[string]*models.ApplicationRecord
	CreateErr    error
}

func newMockStore() *MockStore {
	return &MockStore{
		jobs: map[string]*models.JobPosting{
			"job-1": {ID: "job-1", EmployerID: "emp-1", Title: "Mason", District: "Purulia", Status: models.ReviewApproved, IsPublic: true},
			"job-2": {ID: "job-2", EmployerID: "emp-1", Title: "Hidden", District: "Purulia", Status: models.ReviewPending},
		},
		workers: map[string]*models.WorkerRecord{
			"w-1": {ID: "w-1", Name: "Rina", District: "Purulia", Email: "rina@example.in", Rating: 2},
			"w-2": {ID: "w-2", Name: "No Mail", District: "Purulia"},
		},
		users: map[string]*models.UserProfile{
			"emp-1": {ID: "emp-1", Email: "owner@kiln.in", DisplayName: "Kiln Owner"},
		},
		applications: map[string]*models.ApplicationRecord{
			"app-1": {ID: "app-1", WorkerID: "w-1", JobID: "job-1", Status: models.ApplicationPending},
		},
	}
}

func (m *MockStore) GetJob(ctx context.Context, id string) (*models.JobPosting, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) GetWorker(ctx context.Context, id string) (*models.WorkerRecord, error) {
	if w, ok := m.workers[id]; ok {
		return w, nil
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) CreateApplication(ctx context.Context, a *models.ApplicationRecord) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	a.ID = "app-new"
	a.Status = models.ApplicationPending
	m.applications[a.ID] = a
	return nil
}

func (m *MockStore) GetApplication(ctx context.Context, id string) (*models.ApplicationRecord, error) {
	if a, ok := m.applications[id]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) DecideApplication(ctx context.Context, id string, status models.ApplicationStatus) (*models.ApplicationRecord, error) {
	a, ok := m.applications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if a.Status != models.ApplicationPending {
		return nil, store.ErrConflict
	}
	a.Status = status
	if status == models.ApplicationAccepted {
		m.workers[a.WorkerID].Rating++
	}
	return a, nil
}

type MockMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *MockMailer) Provider() string                 { return "mock" }
func (m *MockMailer) Verify(ctx context.Context) error { return nil }
func (m *MockMailer) Send(ctx context.Context, msg notify.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.err != nil {
		return "", m.err
	}
	return "msg-1", nil
}

func newService(t *testing.T, st *MockStore, mailer *MockMailer) *Service {
	return NewService(st, mailer, "https://signalx.in/", logger.NewTestLogger(t))
}

// ==========================
// Apply
// ==========================

func TestService_Apply(t *testing.T) {
	tests := []struct {
		name      string
		workerID  string
		jobID     string
		createErr error
		mailErr   error
		wantCode  apperrors.ErrorCode
		wantMails int
	}{
		{name: "success notifies employer", workerID: "w-1", jobID: "job-1", wantMails: 1},
		{name: "email failure does not block", workerID: "w-1", jobID: "job-1", mailErr: errors.New("smtp down"), wantMails: 1},
		{name: "hidden job", workerID: "w-1", jobID: "job-2", wantCode: apperrors.ErrCodeValidationFailed},
		{name: "unknown job", workerID: "w-1", jobID: "job-9", wantCode: apperrors.ErrCodeResourceNotFound},
		{name: "unknown worker", workerID: "w-9", jobID: "job-1", wantCode: apperrors.ErrCodeResourceNotFound},
		{name: "duplicate", workerID: "w-1", jobID: "job-1", createErr: store.ErrConflict, wantCode: apperrors.ErrCodeValidationFailed},
		{name: "missing fields", jobID: "job-1", wantCode: apperrors.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMockStore()
			st.CreateErr = tt.createErr
			mailer := &MockMailer{err: tt.mailErr}
			s := newService(t, st, mailer)

			app, err := s.Apply(context.Background(), tt.workerID, tt.jobID)
			if tt.wantCode != "" {
				assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
				assert.Empty(t, mailer.sent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.ApplicationPending, app.Status)
			require.Len(t, mailer.sent, tt.wantMails)
			assert.Equal(t, "owner@kiln.in", mailer.sent[0].To)
			assert.Equal(t, "New application for Mason", mailer.sent[0].Subject)
			assert.Contains(t, mailer.sent[0].HTML, "https://signalx.in/employer/applications/app-new")
		})
	}
}

// ==========================
// NotifyEmployer
// ==========================

func TestService_NotifyEmployer(t *testing.T) {
	t.Run("sends", func(t *testing.T) {
		mailer := &MockMailer{}
		s := newService(t, newMockStore(), mailer)

		res, err := s.NotifyEmployer(context.Background(), "app-1", "job-1")
		require.NoError(t, err)
		assert.Equal(t, &EmailResult{MessageID: "msg-1", To: "owner@kiln.in"}, res)
		assert.Contains(t, mailer.sent[0].HTML, "Kiln Owner")
	})

	t.Run("missing documents", func(t *testing.T) {
		st := newMockStore()
		st.jobs["job-3"] = &models.JobPosting{ID: "job-3", EmployerID: "ghost"}
		s := newService(t, st, &MockMailer{})

		for _, ids := range [][2]string{{"app-9", "job-1"}, {"app-1", "job-9"}, {"app-1", "job-3"}} {
			_, err := s.NotifyEmployer(context.Background(), ids[0], ids[1])
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound), "%v: %v", ids, err)
		}
	})

	t.Run("delivery failure surfaces", func(t *testing.T) {
		s := newService(t, newMockStore(), &MockMailer{err: errors.New("535 auth")})
		_, err := s.NotifyEmployer(context.Background(), "app-1", "job-1")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationSendFailed))
	})
}

// ==========================
// Decide
// ==========================

func TestService_Decide(t *testing.T) {
	t.Run("accept credits worker once", func(t *testing.T) {
		st := newMockStore()
		mailer := &MockMailer{}
		s := newService(t, st, mailer)

		app, err := s.Decide(context.Background(), "app-1", models.ApplicationAccepted)
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationAccepted, app.Status)
		assert.Equal(t, 3, st.workers["w-1"].Rating)
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "Application accepted: Mason", mailer.sent[0].Subject)

		_, err = s.Decide(context.Background(), "app-1", models.ApplicationAccepted)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidStatusTransition))
		assert.Equal(t, 3, st.workers["w-1"].Rating)
		assert.Len(t, mailer.sent, 1)
	})

	t.Run("reject leaves rating", func(t *testing.T) {
		st := newMockStore()
		s := newService(t, st, &MockMailer{err: errors.New("timeout")})

		app, err := s.Decide(context.Background(), "app-1", models.ApplicationRejected)
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationRejected, app.Status)
		assert.Equal(t, 2, st.workers["w-1"].Rating)
	})

	t.Run("pending is not a decision", func(t *testing.T) {
		s := newService(t, newMockStore(), &MockMailer{})
		_, err := s.Decide(context.Background(), "app-1", models.ApplicationPending)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
	})

	t.Run("unknown application", func(t *testing.T) {
		s := newService(t, newMockStore(), &MockMailer{})
		_, err := s.Decide(context.Background(), "app-9", models.ApplicationRejected)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound))
	})
}

// ==========================
// SendStatusEmail
// ==========================

func TestService_SendStatusEmail(t *testing.T) {
	t.Run("rejected", func(t *testing.T) {
		mailer := &MockMailer{}
		s := newService(t, newMockStore(), mailer)

		res, err := s.SendStatusEmail(context.Background(), "app-1", models.ApplicationRejected)
		require.NoError(t, err)
		assert.Equal(t, "rina@example.in", res.To)
		assert.Equal(t, "Update on your application: Mason", mailer.sent[0].Subject)
		assert.Contains(t, mailer.sent[0].HTML, "was not selected")
	})

	t.Run("worker without email", func(t *testing.T) {
		st := newMockStore()
		st.applications["app-2"] = &models.ApplicationRecord{ID: "app-2", WorkerID: "w-2", JobID: "job-1"}
		s := newService(t, st, &MockMailer{})

		_, err := s.SendStatusEmail(context.Background(), "app-2", models.ApplicationAccepted)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound))
	})

	t.Run("invalid status", func(t *testing.T) {
		s := newService(t, newMockStore(), &MockMailer{})
		_, err := s.SendStatusEmail(context.Background(), "app-1", "maybe")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
	})
}
