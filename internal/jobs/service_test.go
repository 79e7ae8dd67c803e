package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/models"
	"signalx/internal/moderation"
	"signalx/internal/notify"
	"signalx/internal/search"
	"signalx/internal/store"
)

// ==========================
// Mocks
// ==========================

type MockStore struct {
	jobs        map[string]*models.JobPosting
	workers     []*models.WorkerRecord
	CreateErr   error
	PublishFunc func(now time.Time) ([]*models.JobPosting, error)
	lastReview  store.JobReview
	gotSkills   []string
}

func newMockStore() *MockStore {
	return &MockStore{jobs: map[string]*models.JobPosting{}}
}

func (m *MockStore) CreateJob(ctx context.Context, job *models.JobPosting) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	job.ID = "job-new"
	m.jobs[job.ID] = job
	return nil
}

func (m *MockStore) GetJob(ctx context.Context, id string) (*models.JobPosting, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MockStore) UpdateJobReview(ctx context.Context, id string, review store.JobReview) (*models.JobPosting, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	m.lastReview = review
	job.Status, job.Moderation, job.IsPublic, job.PublishAt = review.Status, review.Moderation, review.IsPublic, review.PublishAt
	cp := *job
	return &cp, nil
}

func (m *MockStore) PublishDue(ctx context.Context, now time.Time) ([]*models.JobPosting, error) {
	return m.PublishFunc(now)
}

func (m *MockStore) ListMatchingWorkers(ctx context.Context, district string, skills []string) ([]*models.WorkerRecord, error) {
	m.gotSkills = skills
	return m.workers, nil
}

type MockClassifier struct {
	verdict moderation.Verdict
}

func (m *MockClassifier) Classify(ctx context.Context, title, description string) moderation.Verdict {
	return m.verdict
}

type MockIndex struct {
	mu     sync.Mutex
	synced []string
	err    error
}

func (m *MockIndex) Sync(ctx context.Context, job *models.JobPosting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced = append(m.synced, job.ID)
	return m.err
}

func (m *MockIndex) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	return &search.Result{Total: 1}, nil
}

type MockMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	fail map[string]bool
}

func (m *MockMailer) Provider() string                 { return "mock" }
func (m *MockMailer) Verify(ctx context.Context) error { return nil }
func (m *MockMailer) Send(ctx context.Context, msg notify.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.fail[msg.To] {
		return "", errors.New("rejected")
	}
	return "id", nil
}

type MockSMS struct {
	phones []string
	err    error
}

func (m *MockSMS) Send(ctx context.Context, phone, text string) (string, error) {
	m.phones = append(m.phones, phone)
	return "sms", m.err
}

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, st *MockStore, verdict moderation.Verdict, idx *MockIndex, mailer *MockMailer, sms SMSSender) *Service {
	log := logger.NewTestLogger(t)
	var index Index
	if idx != nil {
		index = idx
	}
	s := NewService(st, &MockClassifier{verdict: verdict}, index, NewAlerter(mailer, sms, "https://signalx.in", log), log)
	s.now = func() time.Time { return now }
	return s
}

func validInput() CreateInput {
	return CreateInput{
		EmployerID:  "emp-1",
		Title:       "  Paddy transplanting  ",
		Description: "Ten days of work",
		District:    "Bardhaman",
		Skills:      []string{"Farming", "farming ", ""},
	}
}

// ==========================
// Create
// ==========================

func TestService_Create(t *testing.T) {
	future := now.Add(48 * time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name           string
		verdict        moderation.Verdict
		publishAt      *time.Time
		wantStatus     models.ReviewStatus
		wantModeration models.ModerationVerdict
		wantPublic     bool
		wantFlagged    bool
	}{
		{"safe goes live", moderation.Verdict{Safe: true, Source: moderation.SourceModel}, nil, models.ReviewApproved, models.VerdictAutoApproved, true, false},
		{"safe but scheduled stays hidden", moderation.Verdict{Safe: true, Source: moderation.SourceModel}, &future, models.ReviewApproved, models.VerdictAutoApproved, false, false},
		{"safe with past publish time goes live", moderation.Verdict{Safe: true, Source: moderation.SourceModel}, &past, models.ReviewApproved, models.VerdictAutoApproved, true, false},
		{"unsafe is flagged", moderation.Verdict{Safe: false, Source: moderation.SourceModel}, nil, models.ReviewPending, models.VerdictFlagged, false, true},
		{"no credential is manual", moderation.Verdict{Safe: false, Source: moderation.SourceNoCredential}, nil, models.ReviewPending, models.VerdictManual, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMockStore()
			idx := &MockIndex{}
			s := newService(t, st, tt.verdict, idx, &MockMailer{}, nil)

			in := validInput()
			in.PublishAt = tt.publishAt
			res, err := s.Create(context.Background(), in)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, res.Job.Status)
			assert.Equal(t, tt.wantModeration, res.Job.Moderation)
			assert.Equal(t, tt.wantPublic, res.Job.IsPublic)
			assert.Equal(t, tt.wantFlagged, res.Flagged)
			assert.Equal(t, "Paddy transplanting", res.Job.Title)
			assert.Equal(t, []string{"farming"}, res.Job.Skills)
			assert.Equal(t, []string{"job-new"}, idx.synced)
		})
	}
}

func TestService_Create_Errors(t *testing.T) {
	s := newService(t, newMockStore(), moderation.Verdict{Safe: true}, nil, &MockMailer{}, nil)
	_, err := s.Create(context.Background(), CreateInput{Title: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))

	st := newMockStore()
	st.CreateErr = errors.New("unique violation")
	s = newService(t, st, moderation.Verdict{Safe: true}, nil, &MockMailer{}, nil)
	_, err = s.Create(context.Background(), validInput())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseInsertFailed))
}

func TestService_Create_IndexFailureIsLogged(t *testing.T) {
	idx := &MockIndex{err: errors.New("cluster red")}
	s := newService(t, newMockStore(), moderation.Verdict{Safe: true}, idx, &MockMailer{}, nil)

	res, err := s.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.True(t, res.Job.IsPublic)
}

// ==========================
// Review
// ==========================

func TestService_Review(t *testing.T) {
	future := now.Add(time.Hour)

	t.Run("approve publishes", func(t *testing.T) {
		st := newMockStore()
		st.jobs["job-1"] = &models.JobPosting{ID: "job-1", Status: models.ReviewPending, Moderation: models.VerdictFlagged}
		s := newService(t, st, moderation.Verdict{}, nil, &MockMailer{}, nil)

		job, err := s.Review(context.Background(), "job-1", true, nil)
		require.NoError(t, err)
		assert.True(t, job.Visible())
		assert.Equal(t, models.VerdictFlagged, job.Moderation)
	})

	t.Run("approve with future publish time schedules", func(t *testing.T) {
		st := newMockStore()
		st.jobs["job-1"] = &models.JobPosting{ID: "job-1", Status: models.ReviewPending, Moderation: models.VerdictManual}
		s := newService(t, st, moderation.Verdict{}, nil, &MockMailer{}, nil)

		job, err := s.Review(context.Background(), "job-1", true, &future)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewApproved, job.Status)
		assert.False(t, job.IsPublic)
		assert.True(t, job.DueForPublish(future))
	})

	t.Run("reject hides", func(t *testing.T) {
		st := newMockStore()
		st.jobs["job-1"] = &models.JobPosting{ID: "job-1", Status: models.ReviewApproved, IsPublic: true, Moderation: models.VerdictAutoApproved}
		s := newService(t, st, moderation.Verdict{}, nil, &MockMailer{}, nil)

		job, err := s.Review(context.Background(), "job-1", false, nil)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewRejected, job.Status)
		assert.Equal(t, models.VerdictRejected, job.Moderation)
		assert.False(t, job.IsPublic)
	})

	t.Run("missing job", func(t *testing.T) {
		s := newService(t, newMockStore(), moderation.Verdict{}, nil, &MockMailer{}, nil)
		_, err := s.Review(context.Background(), "nope", true, nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeResourceNotFound))
	})
}

// ==========================
// PublishDue
// ==========================

func TestService_PublishDue(t *testing.T) {
	st := newMockStore()
	st.PublishFunc = func(got time.Time) ([]*models.JobPosting, error) {
		assert.Equal(t, now, got)
		return []*models.JobPosting{{ID: "a"}, {ID: "b"}}, nil
	}
	idx := &MockIndex{}
	s := newService(t, st, moderation.Verdict{}, idx, &MockMailer{}, nil)

	n, err := s.PublishDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b"}, idx.synced)

	st.PublishFunc = func(time.Time) ([]*models.JobPosting, error) { return nil, errors.New("deadlock") }
	_, err = s.PublishDue(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseQueryFailed))
}

// ==========================
// SendAlerts
// ==========================

func TestService_SendAlerts(t *testing.T) {
	workers := []*models.WorkerRecord{
		{ID: "w-1", Name: "Rina", Email: "rina@example.in", Phone: "+919800000001"},
		{ID: "w-2", Name: "Alam", Email: "alam@example.in"},
		{ID: "w-3", Name: "Phone only", Phone: "+919800000003"},
	}

	t.Run("stored job", func(t *testing.T) {
		st := newMockStore()
		st.workers = workers
		st.jobs["job-1"] = &models.JobPosting{
			ID: "job-1", Title: "Weaver", District: "Nadia", Skills: []string{"Weaving"},
			Status: models.ReviewApproved, IsPublic: true,
		}
		mailer := &MockMailer{fail: map[string]bool{"alam@example.in": true}}
		sms := &MockSMS{}
		s := newService(t, st, moderation.Verdict{}, nil, mailer, sms)

		res, err := s.SendAlerts(context.Background(), AlertRequest{JobID: "job-1"})
		require.NoError(t, err)
		assert.Equal(t, &AlertResult{Matched: 3, Successful: 1, Failed: 1, SMSSent: 2}, res)
		assert.Equal(t, []string{"weaving"}, st.gotSkills)
		assert.Len(t, mailer.sent, 2)
		assert.Equal(t, []string{"+919800000001", "+919800000003"}, sms.phones)
	})

	t.Run("inline job data", func(t *testing.T) {
		st := newMockStore()
		st.workers = workers[:1]
		mailer := &MockMailer{}
		s := newService(t, st, moderation.Verdict{}, nil, mailer, nil)

		res, err := s.SendAlerts(context.Background(), AlertRequest{
			JobData: &models.JobPosting{Title: "Driver", District: "Hooghly"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Successful)
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "New job in Hooghly: Driver", mailer.sent[0].Subject)
	})

	t.Run("hidden job", func(t *testing.T) {
		st := newMockStore()
		st.jobs["job-1"] = &models.JobPosting{ID: "job-1", District: "Nadia", Status: models.ReviewPending}
		s := newService(t, st, moderation.Verdict{}, nil, &MockMailer{}, nil)

		_, err := s.SendAlerts(context.Background(), AlertRequest{JobID: "job-1"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
	})

	t.Run("nothing to go on", func(t *testing.T) {
		s := newService(t, newMockStore(), moderation.Verdict{}, nil, &MockMailer{}, nil)
		_, err := s.SendAlerts(context.Background(), AlertRequest{})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
	})
}

func TestService_SearchDisabled(t *testing.T) {
	s := newService(t, newMockStore(), moderation.Verdict{}, nil, &MockMailer{}, nil)
	_, err := s.Search(context.Background(), search.Query{Text: "mason"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed))

	s = newService(t, newMockStore(), moderation.Verdict{}, &MockIndex{}, &MockMailer{}, nil)
	res, err := s.Search(context.Background(), search.Query{Text: "mason"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
}
