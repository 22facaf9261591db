package history

import (
	"context"
	"regexp"
	"testing"
	"time"

	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobColumns = "id, user_id, job_id, job_title, company_name, status, viewed_at, applied_at"

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, logger.NewNoOpLogger()), mock
}

func jobRow(id int64, userID int64, jobID string, status models.JobStatus, appliedAt interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "job_id", "job_title", "company_name", "status", "viewed_at", "applied_at"}).
		AddRow(id, userID, jobID, "Backend Engineer", "Acme", string(status), time.Now(), appliedAt)
}

func expectGet(mock sqlmock.Sqlmock) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT ` + jobColumns + `
		FROM jobs WHERE user_id = $1 AND job_id = $2`))
}

func TestStore_TrackView_NewJob(t *testing.T) {
	store, mock := newStore(t)

	expectGet(mock).WithArgs(int64(7), "job-1").
		WillReturnRows(sqlmock.NewRows(nil))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO jobs`)).
		WithArgs(int64(7), "job-1", "Backend Engineer", "Acme", string(models.JobStatusViewed), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "viewed_at"}).AddRow(int64(1), time.Now()))

	job, err := store.TrackView(context.Background(), 7, "job-1", "Backend Engineer", "Acme")

	require.NoError(t, err)
	assert.Equal(t, int64(1), job.ID)
	assert.Equal(t, models.JobStatusViewed, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_TrackView_Idempotent(t *testing.T) {
	store, mock := newStore(t)

	expectGet(mock).WithArgs(int64(7), "job-1").
		WillReturnRows(jobRow(3, 7, "job-1", models.JobStatusViewed, nil))

	job, err := store.TrackView(context.Background(), 7, "job-1", "ignored", "ignored")

	require.NoError(t, err)
	assert.Equal(t, int64(3), job.ID, "existing row returned, no insert issued")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkApplied(t *testing.T) {
	store, mock := newStore(t)

	expectGet(mock).WithArgs(int64(7), "job-1").
		WillReturnRows(jobRow(3, 7, "job-1", models.JobStatusViewed, nil))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE jobs SET status = $1, applied_at = $2`)).
		WithArgs(string(models.JobStatusApplied), sqlmock.AnyArg(), int64(7), "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	job, err := store.MarkApplied(context.Background(), 7, "job-1")

	require.NoError(t, err)
	assert.Equal(t, models.JobStatusApplied, job.Status)
	require.NotNil(t, job.AppliedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkApplied_NotTracked(t *testing.T) {
	store, mock := newStore(t)

	expectGet(mock).WithArgs(int64(7), "missing").
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := store.MarkApplied(context.Background(), 7, "missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkApplied_AlreadyApplied(t *testing.T) {
	store, mock := newStore(t)

	appliedAt := time.Now().Add(-time.Hour)
	expectGet(mock).WithArgs(int64(7), "job-1").
		WillReturnRows(jobRow(3, 7, "job-1", models.JobStatusApplied, appliedAt))

	job, err := store.MarkApplied(context.Background(), 7, "job-1")

	require.NoError(t, err)
	assert.Equal(t, models.JobStatusApplied, job.Status, "no update issued for an already-applied job")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetUserJobs_All(t *testing.T) {
	store, mock := newStore(t)

	rows := jobRow(1, 7, "job-1", models.JobStatusApplied, time.Now()).
		AddRow(int64(2), int64(7), "job-2", "SRE", "Beta", string(models.JobStatusViewed), time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM jobs WHERE user_id = $1 ORDER BY viewed_at DESC`)).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	jobs, err := store.GetUserJobs(context.Background(), 7, "")

	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-1", jobs[0].JobID)
	require.NotNil(t, jobs[0].AppliedAt)
	assert.Nil(t, jobs[1].AppliedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetUserJobs_StatusFilter(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM jobs WHERE user_id = $1 AND status = $2 ORDER BY viewed_at DESC`)).
		WithArgs(int64(7), string(models.JobStatusApplied)).
		WillReturnRows(jobRow(1, 7, "job-1", models.JobStatusApplied, time.Now()))

	jobs, err := store.GetUserJobs(context.Background(), 7, models.JobStatusApplied)

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobStatusApplied, jobs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CheckStatus_Untracked(t *testing.T) {
	store, mock := newStore(t)

	expectGet(mock).WithArgs(int64(7), "nope").
		WillReturnRows(sqlmock.NewRows(nil))

	job, err := store.CheckStatus(context.Background(), 7, "nope")

	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestStore_StatusesFor(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT job_id, status FROM jobs WHERE user_id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"job_id", "status"}).
			AddRow("job-1", string(models.JobStatusViewed)).
			AddRow("job-2", string(models.JobStatusApplied)))

	statuses, err := store.StatusesFor(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, map[string]models.JobStatus{
		"job-1": models.JobStatusViewed,
		"job-2": models.JobStatusApplied,
	}, statuses)
}
