package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalx/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

var jobCols = []string{
	"id", "employer_id", "title", "description", "district", "block", "salary", "skills",
	"employment_type", "is_public", "moderation", "moderation_reason", "status", "publish_at",
	"created_at", "updated_at",
}

func jobRow(rows *sqlmock.Rows, id string, status string, public bool, publishAt interface{}) *sqlmock.Rows {
	return rows.AddRow(id, "emp-1", "Mason", "Brick work for school building", "Purulia", "Jhalda I",
		"₹450/day", "{masonry,construction}", "daily", public, "auto-approved", "", status, publishAt,
		fixedNow, fixedNow)
}

// ==========================
// Jobs
// ==========================

func TestStore_Migrate(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateJob(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs")).
		WithArgs(sqlmock.AnyArg(), "emp-1", "Mason", "desc", "Purulia", "", "", sqlmock.AnyArg(),
			"", true, models.VerdictAutoApproved, "", models.ReviewApproved, nil, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	job := &models.JobPosting{
		EmployerID:  "emp-1",
		Title:       "Mason",
		Description: "desc",
		District:    "Purulia",
		IsPublic:    true,
		Moderation:  models.VerdictAutoApproved,
		Status:      models.ReviewApproved,
	}
	require.NoError(t, s.CreateJob(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, []string{}, job.Skills)
	assert.Equal(t, fixedNow, job.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetJob(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE id = $1")).
			WithArgs("job-1").
			WillReturnRows(jobRow(sqlmock.NewRows(jobCols), "job-1", "approved", true, nil))

		job, err := s.GetJob(context.Background(), "job-1")
		require.NoError(t, err)
		assert.Equal(t, "Purulia", job.District)
		assert.Equal(t, []string{"masonry", "construction"}, job.Skills)
		assert.True(t, job.Visible())
		assert.Nil(t, job.PublishAt)
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE id = $1")).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetJob(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_PublishDue(t *testing.T) {
	s, mock := newTestStore(t)
	due := fixedNow.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SET is_public = true")).
		WithArgs(fixedNow).
		WillReturnRows(jobRow(sqlmock.NewRows(jobCols), "job-7", "approved", true, due))

	published, err := s.PublishDue(context.Background(), fixedNow)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "job-7", published[0].ID)
	require.NotNil(t, published[0].PublishAt)
	assert.True(t, published[0].PublishAt.Equal(due))

	// nothing left to publish on the second sweep
	mock.ExpectQuery(regexp.QuoteMeta("SET is_public = true")).
		WithArgs(fixedNow).
		WillReturnRows(sqlmock.NewRows(jobCols))
	published, err = s.PublishDue(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Empty(t, published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CountJobsAndWorkers(t *testing.T) {
	tests := []struct {
		name     string
		block    string
		mockCall func(mock sqlmock.Sqlmock)
	}{
		{
			name:  "district only",
			block: "",
			mockCall: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM jobs WHERE district = $1 AND status")).
					WithArgs("Purulia").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM workers WHERE district = $1")).
					WithArgs("Purulia").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(523))
			},
		},
		{
			name:  "district and block",
			block: "Jhalda I",
			mockCall: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("WHERE district = $1 AND block = $2 AND status")).
					WithArgs("Purulia", "Jhalda I").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))
				mock.ExpectQuery(regexp.QuoteMeta("FROM workers WHERE district = $1 AND block = $2")).
					WithArgs("Purulia", "Jhalda I").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(523))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newTestStore(t)
			tt.mockCall(mock)

			jobs, err := s.CountJobs(context.Background(), "Purulia", tt.block)
			require.NoError(t, err)
			workers, err := s.CountWorkers(context.Background(), "Purulia", tt.block)
			require.NoError(t, err)

			assert.Equal(t, 45, jobs)
			assert.Equal(t, 523, workers)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_CountJobs_Error(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("connection reset"))

	_, err := s.CountJobs(context.Background(), "Purulia", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count jobs")
}

// ==========================
// Workers
// ==========================

var workerCols = []string{"id", "name", "district", "block", "skills", "email", "phone", "rating", "created_at"}

func TestStore_ListMatchingWorkers(t *testing.T) {
	t.Run("skill overlap", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE district = $1 AND skills && $2")).
			WithArgs("Bankura", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(workerCols).
				AddRow("w-1", "Rina", "Bankura", "", "{weaving}", "rina@example.in", "", 2, fixedNow).
				AddRow("w-2", "Sk. Alam", "Bankura", "Onda", "{weaving,dyeing}", "alam@example.in", "+919800000000", 0, fixedNow))

		workers, err := s.ListMatchingWorkers(context.Background(), "Bankura", []string{"weaving"})
		require.NoError(t, err)
		require.Len(t, workers, 2)
		assert.Equal(t, []string{"weaving", "dyeing"}, workers[1].Skills)
		assert.Equal(t, "+919800000000", workers[1].Phone)
	})

	t.Run("no skills falls back to district", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM workers WHERE district = $1 ORDER BY created_at")).
			WithArgs("Bankura").
			WillReturnRows(sqlmock.NewRows(workerCols))

		workers, err := s.ListMatchingWorkers(context.Background(), "Bankura", nil)
		require.NoError(t, err)
		assert.Empty(t, workers)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// ==========================
// Applications
// ==========================

var applicationCols = []string{"id", "worker_id", "job_id", "status", "submitted_at", "decided_at"}

func TestStore_DecideApplication(t *testing.T) {
	t.Run("accept increments rating once", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE applications")).
			WithArgs("app-1", models.ApplicationAccepted, fixedNow).
			WillReturnRows(sqlmock.NewRows(applicationCols).
				AddRow("app-1", "w-1", "job-1", "accepted", fixedNow, fixedNow))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE workers SET rating = rating + 1 WHERE id = $1")).
			WithArgs("w-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		a, err := s.DecideApplication(context.Background(), "app-1", models.ApplicationAccepted)
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationAccepted, a.Status)
		require.NotNil(t, a.DecidedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reject leaves rating alone", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE applications")).
			WithArgs("app-2", models.ApplicationRejected, fixedNow).
			WillReturnRows(sqlmock.NewRows(applicationCols).
				AddRow("app-2", "w-1", "job-1", "rejected", fixedNow, fixedNow))
		mock.ExpectCommit()

		a, err := s.DecideApplication(context.Background(), "app-2", models.ApplicationRejected)
		require.NoError(t, err)
		assert.Equal(t, models.ApplicationRejected, a.Status)
		// no UPDATE workers expectation: an unexpected exec would fail the call
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already decided", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE applications")).
			WillReturnRows(sqlmock.NewRows(applicationCols))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WithArgs("app-3").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err := s.DecideApplication(context.Background(), "app-3", models.ApplicationAccepted)
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown application", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE applications")).
			WillReturnRows(sqlmock.NewRows(applicationCols))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err := s.DecideApplication(context.Background(), "nope", models.ApplicationRejected)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_CreateApplication(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO applications")).
		WithArgs(sqlmock.AnyArg(), "w-1", "job-1", models.ApplicationPending, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a := &models.ApplicationRecord{WorkerID: "w-1", JobID: "job-1", Status: models.ApplicationAccepted}
	require.NoError(t, s.CreateApplication(context.Background(), a))
	assert.Equal(t, models.ApplicationPending, a.Status)
	assert.NotEmpty(t, a.ID)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO applications")).
		WillReturnError(&pq.Error{Code: "23505"})
	err := s.CreateApplication(context.Background(), &models.ApplicationRecord{WorkerID: "w-1", JobID: "job-1"})
	assert.ErrorIs(t, err, ErrConflict)
}

// ==========================
// Users
// ==========================

var userCols = []string{
	"id", "email", "display_name", "role", "status", "organization", "phone", "district",
	"created_at", "updated_at",
}

func TestStore_SetUserStatus(t *testing.T) {
	t.Run("pending to approved", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET status = $3")).
			WithArgs("u-1", models.UserPending, models.UserApproved, fixedNow).
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow("u-1", "hr@tea-estate.in", "Tea Estate HR", "user", "approved", "Dooars Tea", "", "Jalpaiguri", fixedNow, fixedNow))

		u, err := s.SetUserStatus(context.Background(), "u-1", models.UserPending, models.UserApproved)
		require.NoError(t, err)
		assert.Equal(t, models.UserApproved, u.Status)
	})

	t.Run("wrong starting state", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET status = $3")).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow("u-1", "hr@tea-estate.in", "", "user", "incomplete", "", "", "", fixedNow, fixedNow))

		_, err := s.SetUserStatus(context.Background(), "u-1", models.UserPending, models.UserApproved)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("missing user", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE users SET status = $3")).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WillReturnError(sql.ErrNoRows)

		_, err := s.SetUserStatus(context.Background(), "ghost", models.UserPending, models.UserApproved)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_UpsertAdmin(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (email) DO UPDATE SET role = 'admin'")).
		WithArgs("admin-1", "admin@signalx.in", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpsertAdmin(context.Background(), "admin-1", "admin@signalx.in"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
