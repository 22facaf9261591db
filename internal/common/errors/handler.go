// internal/common/errors/handler.go
package errors

import (
	stderrors "errors"
	"net/http"
)

// HTTPStatus maps an internal error code onto the HTTP status the API
// surface should answer with. Codes describing upstream collaborator
// failures map to 502 so callers can tell them apart from our own 500s.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeJobNotFound:
		return http.StatusNotFound
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeExpansionFailed, ErrCodeExpansionTimeout, ErrCodeExpansionBadOutput,
		ErrCodeProviderAuthFailed, ErrCodeProviderSearchFailed, ErrCodeProviderTimeout,
		ErrCodeEmbeddingFailed, ErrCodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsStandard unwraps err to its StandardError, or nil when err carries
// none.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return nil
}
