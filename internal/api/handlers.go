package api

import (
	"encoding/json"
	"net/http"

	"jobsearch-api/internal/common/errors"
	"jobsearch-api/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeStandardError(w http.ResponseWriter, stdErr *errors.StandardError) {
	writeError(w, errors.HTTPStatus(stdErr.Code), stdErr.Message)
}

// writeStoreError maps a history-store failure onto an HTTP status.
func writeStoreError(w http.ResponseWriter, err error) {
	if stdErr := errors.AsStandard(err); stdErr != nil {
		writeStandardError(w, stdErr)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleSmartSearch(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	user, err := s.users.GetUser(r.Context(), userID)
	if err != nil {
		s.logger.WithError(err).Error("user profile lookup failed", map[string]interface{}{
			"userId": userID,
		})
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	query := r.URL.Query().Get("query")

	listings, err := s.searcher.SmartSearch(r.Context(), user, query)
	if err != nil {
		// Only expansion failure surfaces from the orchestrator; every
		// other internal failure degrades into the result itself.
		if stdErr := errors.AsStandard(err); stdErr != nil {
			writeStandardError(w, stdErr)
			return
		}
		writeError(w, http.StatusBadGateway, "search could not be planned, try again")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  listings,
		"count": len(listings),
	})
}

type trackViewRequest struct {
	JobID       string `json:"jobId"`
	JobTitle    string `json:"jobTitle"`
	CompanyName string `json:"companyName"`
}

func (s *Server) handleTrackView(w http.ResponseWriter, r *http.Request) {
	var req trackViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "jobId is required")
		return
	}

	job, err := s.history.TrackView(r.Context(), userIDFrom(r.Context()), req.JobID, req.JobTitle, req.CompanyName)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleMarkApplied(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	job, err := s.history.MarkApplied(r.Context(), userIDFrom(r.Context()), jobID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	job, err := s.history.CheckStatus(r.Context(), userIDFrom(r.Context()), jobID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if job == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"tracked": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tracked": true,
		"job":     job,
	})
}

func (s *Server) handleMyJobs(w http.ResponseWriter, r *http.Request) {
	status := models.JobStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.JobStatusViewed, models.JobStatusApplied:
	default:
		writeError(w, http.StatusBadRequest, "status must be VIEWED or APPLIED")
		return
	}

	jobs, err := s.history.GetUserJobs(r.Context(), userIDFrom(r.Context()), status)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}
