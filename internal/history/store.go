// Package history is the Postgres-backed record of which jobs a user has
// viewed and applied to.
package history

import (
	"context"
	"database/sql"
	"time"

	"jobsearch-api/internal/common/errors"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/models"
)

// Store persists user job interactions.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "job-history"}),
	}
}

// TrackView records that the user opened a listing. Tracking the same job
// twice is a no-op that returns the existing row.
func (s *Store) TrackView(ctx context.Context, userID int64, jobID, jobTitle, companyName string) (*models.TrackedJob, error) {
	existing, err := s.get(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (user_id, job_id, job_title, company_name, status, viewed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, viewed_at`,
		userID, jobID, jobTitle, companyName, models.JobStatusViewed, time.Now().UTC(),
	)

	job := &models.TrackedJob{
		UserID:      userID,
		JobID:       jobID,
		JobTitle:    jobTitle,
		CompanyName: companyName,
		Status:      models.JobStatusViewed,
	}
	if err := row.Scan(&job.ID, &job.ViewedAt); err != nil {
		return nil, errors.NewQueryExecutionFailedError("track view", err)
	}

	s.logger.Info("job view tracked", map[string]interface{}{
		"userId": userID,
		"jobId":  jobID,
	})
	return job, nil
}

// MarkApplied flips a tracked job to APPLIED. The job must have been
// viewed first; marking an already-applied job again is a no-op.
func (s *Store) MarkApplied(ctx context.Context, userID int64, jobID string) (*models.TrackedJob, error) {
	existing, err := s.get(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	if existing.Status == models.JobStatusApplied {
		return existing, nil
	}

	appliedAt := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, applied_at = $2
		WHERE user_id = $3 AND job_id = $4`,
		models.JobStatusApplied, appliedAt, userID, jobID,
	); err != nil {
		return nil, errors.NewQueryExecutionFailedError("mark applied", err)
	}

	existing.Status = models.JobStatusApplied
	existing.AppliedAt = &appliedAt

	s.logger.Info("job marked applied", map[string]interface{}{
		"userId": userID,
		"jobId":  jobID,
	})
	return existing, nil
}

// GetUserJobs lists the user's tracked jobs, most recently viewed first,
// optionally filtered by status.
func (s *Store) GetUserJobs(ctx context.Context, userID int64, status models.JobStatus) ([]models.TrackedJob, error) {
	query := `
		SELECT id, user_id, job_id, job_title, company_name, status, viewed_at, applied_at
		FROM jobs WHERE user_id = $1`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY viewed_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get user jobs", err)
	}
	defer rows.Close()

	jobs := make([]models.TrackedJob, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("get user jobs", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("get user jobs", err)
	}
	return jobs, nil
}

// CheckStatus returns the tracked row for one job, or nil when untracked.
func (s *Store) CheckStatus(ctx context.Context, userID int64, jobID string) (*models.TrackedJob, error) {
	return s.get(ctx, userID, jobID)
}

// StatusesFor is the read-only view the search annotator consumes: every
// tracked job id mapped to its status.
func (s *Store) StatusesFor(ctx context.Context, userID int64) (map[string]models.JobStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, status FROM jobs WHERE user_id = $1`, userID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("statuses for user", err)
	}
	defer rows.Close()

	statuses := make(map[string]models.JobStatus)
	for rows.Next() {
		var jobID string
		var status models.JobStatus
		if err := rows.Scan(&jobID, &status); err != nil {
			return nil, errors.NewQueryExecutionFailedError("statuses for user", err)
		}
		statuses[jobID] = status
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("statuses for user", err)
	}
	return statuses, nil
}

func (s *Store) get(ctx context.Context, userID int64, jobID string) (*models.TrackedJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, job_id, job_title, company_name, status, viewed_at, applied_at
		FROM jobs WHERE user_id = $1 AND job_id = $2`,
		userID, jobID)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get tracked job", err)
	}
	return job, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*models.TrackedJob, error) {
	var job models.TrackedJob
	var companyName sql.NullString
	var appliedAt sql.NullTime
	if err := row.Scan(&job.ID, &job.UserID, &job.JobID, &job.JobTitle,
		&companyName, &job.Status, &job.ViewedAt, &appliedAt); err != nil {
		return nil, err
	}
	job.CompanyName = companyName.String
	if appliedAt.Valid {
		job.AppliedAt = &appliedAt.Time
	}
	return &job, nil
}
