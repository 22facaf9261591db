// Package errors provides standardized error handling for the job-search service.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeExpansionFailed    ErrorCode = "EXPANSION_FAILED"
	ErrCodeExpansionTimeout   ErrorCode = "EXPANSION_TIMEOUT"
	ErrCodeExpansionBadOutput ErrorCode = "EXPANSION_BAD_OUTPUT"

	ErrCodeLocationLookupFailed ErrorCode = "LOCATION_LOOKUP_FAILED"

	ErrCodeProviderAuthFailed   ErrorCode = "PROVIDER_AUTH_FAILED"
	ErrCodeProviderSearchFailed ErrorCode = "PROVIDER_SEARCH_FAILED"
	ErrCodeProviderTimeout      ErrorCode = "PROVIDER_TIMEOUT"

	ErrCodeEmbeddingFailed ErrorCode = "EMBEDDING_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeJobNotFound              ErrorCode = "JOB_NOT_FOUND"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeAuthentication  ErrorCode = "AUTHENTICATION_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewExpansionFailedError creates a non-retryable query-expansion error.
// Expansion failure is fatal to the request: no variations means no search.
func NewExpansionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExpansionFailed,
		Message:   "Query expansion failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExpansionTimeoutError creates a retryable expansion timeout error.
func NewExpansionTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeExpansionTimeout,
		Message:   "Query expansion timeout",
		Details:   "LLM call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExpansionBadOutputError creates a non-retryable schema-validation error.
func NewExpansionBadOutputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExpansionBadOutput,
		Message:   "Query expansion returned invalid payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLocationLookupFailedError creates a retryable geography lookup error.
// The resolver treats it as "no match", never as a request failure.
func NewLocationLookupFailedError(scope string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLocationLookupFailed,
		Message:   "Geography lookup error",
		Details:   fmt.Sprintf("scope: %s, error: %s", scope, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderAuthFailedError creates a retryable provider token error.
func NewProviderAuthFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderAuthFailed,
		Message:   "Listing provider authentication failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderSearchFailedError creates a retryable provider search error.
func NewProviderSearchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderSearchFailed,
		Message:   "Listing provider search error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderTimeoutError creates a retryable provider timeout error.
func NewProviderTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   "Listing provider timeout",
		Details:   "search call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmbeddingFailedError creates a non-retryable embedding error.
// Ranking degrades to score 0 instead of retrying within a request.
func NewEmbeddingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbeddingFailed,
		Message:   "Embedding producer error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobNotFoundError creates a non-retryable job lookup error.
func NewJobNotFoundError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobNotFound,
		Message:   "Job not tracked for this user",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeProviderAuthFailed:
		return 3

	case ErrCodeProviderSearchFailed,
		ErrCodeLocationLookupFailed:
		return 2

	case ErrCodeExpansionTimeout,
		ErrCodeProviderTimeout:
		return 1

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "EXPANSION"):
		return "AI"
	case strings.Contains(codeStr, "EMBEDDING"):
		return "AI"
	case strings.Contains(codeStr, "LOCATION"):
		return "GEOGRAPHY"
	case strings.Contains(codeStr, "PROVIDER"):
		return "PROVIDER"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "AUTHENTICATION"):
		return "AUTH"
	default:
		return "OTHER"
	}
}
