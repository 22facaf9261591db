// Package api is the HTTP surface of the service: the smart-search
// endpoint, the job-tracking endpoints, and the operational probes.
package api

import (
	"context"
	"net/http"
	"time"

	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SmartSearcher runs the search pipeline.
type SmartSearcher interface {
	SmartSearch(ctx context.Context, user *models.User, query string) ([]models.Listing, error)
}

// HistoryStore is the job-tracking surface exposed over HTTP.
type HistoryStore interface {
	TrackView(ctx context.Context, userID int64, jobID, jobTitle, companyName string) (*models.TrackedJob, error)
	MarkApplied(ctx context.Context, userID int64, jobID string) (*models.TrackedJob, error)
	GetUserJobs(ctx context.Context, userID int64, status models.JobStatus) ([]models.TrackedJob, error)
	CheckStatus(ctx context.Context, userID int64, jobID string) (*models.TrackedJob, error)
}

// UserSource resolves the profile behind an authenticated user id.
type UserSource interface {
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server wires the handlers onto a net/http mux.
type Server struct {
	config     Config
	searcher   SmartSearcher
	history    HistoryStore
	users      UserSource
	readyCheck func(ctx context.Context) error
	logger     logger.Logger
	httpServer *http.Server
}

func NewServer(
	config Config,
	searcher SmartSearcher,
	history HistoryStore,
	users UserSource,
	readyCheck func(ctx context.Context) error,
	log logger.Logger,
) *Server {
	s := &Server{
		config:     config,
		searcher:   searcher,
		history:    history,
		users:      users,
		readyCheck: readyCheck,
		logger:     log.WithFields(map[string]interface{}{"component": "api"}),
	}

	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Handler builds the full route table, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("GET /api/v1/jobs/smart-search", s.authenticated(s.handleSmartSearch))
	mux.Handle("POST /api/v1/jobs/view", s.authenticated(s.handleTrackView))
	mux.Handle("POST /api/v1/jobs/apply/{job_id}", s.authenticated(s.handleMarkApplied))
	mux.Handle("GET /api/v1/jobs/status/{job_id}", s.authenticated(s.handleCheckStatus))
	mux.Handle("GET /api/v1/jobs/my-jobs", s.authenticated(s.handleMyJobs))

	return s.withRequestID(mux)
}

func (s *Server) Start() error {
	s.logger.Info("http server starting", map[string]interface{}{
		"addr": s.config.Addr,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down", nil)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readyCheck != nil {
		if err := s.readyCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
