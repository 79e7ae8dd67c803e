// Package errors provides the structured error type shared by the HTTP API
// and the workflow workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrCodeResourceNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeAuthentication          ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeForbidden               ErrorCode = "FORBIDDEN"

	ErrCodeDatabaseQueryFailed  ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeSearchQueryFailed    ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeLLMRequestFailed ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeLLMTimeout       ErrorCode = "LLM_TIMEOUT"

	ErrCodeNotificationSendFailed  ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeAdminEmailNotConfigured ErrorCode = "ADMIN_EMAIL_NOT_CONFIGURED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
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
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 2. Constructors
// ==========================

// NewValidationError reports a missing or malformed request field.
func NewValidationError(message string) *StandardError {
	return newError(ErrCodeValidationFailed, message, "", false)
}

// NewNotFoundError reports a referenced record that does not exist.
func NewNotFoundError(resource, id string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("%s not found", resource), fmt.Sprintf("id: %s", id), false)
}

func NewInvalidStatusTransitionError(resource, from, to string) *StandardError {
	return newError(ErrCodeInvalidStatusTransition,
		fmt.Sprintf("cannot move %s from %s to %s", resource, from, to), "", false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false)
}

func NewForbiddenError(details string) *StandardError {
	return newError(ErrCodeForbidden, "Admin access required", details, false)
}

func NewDatabaseQueryError(operation string, err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true)
}

func NewDatabaseInsertError(operation string, err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database write failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true)
}

func NewSearchQueryError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed", err.Error(), true)
}

func NewLLMRequestError(provider string, err error) *StandardError {
	return newError(ErrCodeLLMRequestFailed, fmt.Sprintf("Language model %q request failed", provider), err.Error(), true)
}

func NewLLMTimeoutError(provider string) *StandardError {
	return newError(ErrCodeLLMTimeout, fmt.Sprintf("Language model %q timed out", provider), "", true)
}

func NewNotificationSendError(kind string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %v", kind, err), true)
}

func NewAdminEmailNotConfiguredError() *StandardError {
	return newError(ErrCodeAdminEmailNotConfigured, "Admin email not configured", "set ADMIN_EMAIL", false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Internal server error", err.Error(), false)
}

// ==========================
// 3. Classification
// ==========================

// AsStandard unwraps err into a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func AsStandard(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// HTTPStatus maps an error code to the response status. Upstream failures
// surface as 500 only at the outer handler boundary.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeInvalidStatusTransition:
		return http.StatusBadRequest
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeResourceNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 4. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// GetRetryCount returns the recommended retry budget for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeLLMRequestFailed:
		return 2
	case ErrCodeLLMTimeout:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"), strings.Contains(codeStr, "EMAIL"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "AUTH"), codeStr == string(ErrCodeForbidden):
		return "AUTH"
	case strings.Contains(codeStr, "VALIDATION"), strings.Contains(codeStr, "INVALID"), strings.Contains(codeStr, "NOT_FOUND"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
