// Package users reads the profile snapshot the upstream gateway keeps for
// each authenticated user. The service never authenticates; identity
// arrives resolved in the X-User-ID header.
package users

import (
	"context"
	"database/sql"
	"encoding/json"

	"jobsearch-api/internal/common/errors"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/models"
)

// Store reads user profiles from Postgres.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "user-profiles"}),
	}
}

// profilePayload is the denormalized profile JSON kept per users row.
type profilePayload struct {
	Skills          []models.Skill          `json:"skills"`
	WorkExperiences []models.WorkExperience `json:"workExperiences"`
	Projects        []models.Project        `json:"projects"`
}

// GetUser loads a user's profile. An authenticated user without a stored
// profile still gets a bare user record: the search pipeline works with
// an empty profile summary.
func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user := &models.User{ID: userID}

	var email sql.NullString
	var profileRaw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT email, profile FROM users WHERE id = $1`, userID,
	).Scan(&email, &profileRaw)
	if err == sql.ErrNoRows {
		return user, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get user", err)
	}

	user.Email = email.String

	if len(profileRaw) > 0 {
		var profile profilePayload
		if err := json.Unmarshal(profileRaw, &profile); err != nil {
			s.logger.Warn("user profile payload unreadable", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
			return user, nil
		}
		user.Skills = profile.Skills
		user.WorkExperiences = profile.WorkExperiences
		user.Projects = profile.Projects
	}

	return user, nil
}
