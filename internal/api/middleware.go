package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"jobsearch-api/internal/common/errors"

	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "userID"

// withRequestID assigns every request a uuid, echoed in X-Request-ID and
// attached to the access log line.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)

		s.logger.Debug("request handled", map[string]interface{}{
			"requestId":  requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}

// authenticated requires the X-User-ID header set by the upstream
// gateway. Authentication itself happens there; a missing or malformed
// header here means the request bypassed the gateway.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			writeStandardError(w, errors.NewAuthenticationError("missing X-User-ID header"))
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			writeStandardError(w, errors.NewAuthenticationError("malformed X-User-ID header"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}
