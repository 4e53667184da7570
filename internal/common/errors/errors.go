// Package errors provides standardized error handling for the send pipeline.
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

// Spreadsheet / validation errors
const (
	ErrCodeInvalidSpreadsheet       ErrorCode = "INVALID_SPREADSHEET"
	ErrCodeUnparseableDate          ErrorCode = "UNPARSEABLE_DATE_IN_SPREADSHEET"
	ErrCodeRowValidationFailed      ErrorCode = "ROW_VALIDATION_FAILED"
	ErrCodeBatchPolicyViolation     ErrorCode = "BATCH_POLICY_VIOLATION"
	ErrCodeDuplicateSubmission      ErrorCode = "DUPLICATE_SUBMISSION"
	ErrCodeFormValidationFailed     ErrorCode = "FORM_VALIDATION_FAILED"
	ErrCodeResponseValidationFailed ErrorCode = "RESPONSE_VALIDATION_FAILED"
)

// Upstream / infrastructure errors
const (
	ErrCodeUpstreamBackend  ErrorCode = "UPSTREAM_BACKEND_ERROR"
	ErrCodeUpstreamTimeout  ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeDraftExpired     ErrorCode = "DRAFT_EXPIRED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeStorageFailed    ErrorCode = "STORAGE_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidSpreadsheetError is returned when a file cannot be decoded.
func NewInvalidSpreadsheetError(fileName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSpreadsheet,
		Message:   fmt.Sprintf("Could not read %s. Try using a different file format.", fileName),
		Details:   errDetails(err),
		Retryable: false,
		Metadata:  map[string]interface{}{"fileName": fileName},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewUnparseableDateError is returned when a spreadsheet cell holds a number
// or date format that cannot be read.
func NewUnparseableDateError(fileName string, err error) *StandardError {
	return &StandardError{
		Code: ErrCodeUnparseableDate,
		Message: fmt.Sprintf(
			"%s contains numbers or dates that GC Notify can't understand. Try formatting all columns as 'text' or export your file as CSV.",
			fileName,
		),
		Details:   errDetails(err),
		Retryable: false,
		Metadata:  map[string]interface{}{"fileName": fileName},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewRowValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRowValidationFailed,
		Message:   "Spreadsheet rows failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewBatchPolicyViolationError(kind string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBatchPolicyViolation,
		Message:   "Send blocked by service policy",
		Details:   kind,
		Retryable: false,
		Metadata:  map[string]interface{}{"block": kind},
		Timestamp: time.Now().UTC(),
	}
}

func NewDuplicateSubmissionError(fileName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateSubmission,
		Message:   "This file has been sent before",
		Details:   fmt.Sprintf("originalFileName: %s", fileName),
		Retryable: false,
		Metadata:  map[string]interface{}{"fileName": fileName},
		Timestamp: time.Now().UTC(),
	}
}

func NewFormValidationFailedError(field, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFormValidationFailed,
		Message:   message,
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

func NewResponseValidationFailedError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResponseValidationFailed,
		Message:   fmt.Sprintf("Backend returned an invalid %s", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamBackendError wraps a non-2xx reply from the backend API.
// Status and the backend message are kept in metadata so callers can map
// known rejections.
func NewUpstreamBackendError(status int, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamBackend,
		Message:   "Backend API error",
		Details:   message,
		Retryable: status >= 500,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamTimeoutError creates a retryable timeout error.
func NewUpstreamTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDraftExpiredError(missing string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftExpired,
		Message:   "Send draft is missing required data",
		Details:   fmt.Sprintf("missing: %s", missing),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewForbiddenError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Message:   "You do not have permission to do that",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageFailedError creates a retryable object store / cache error.
func NewStorageFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageFailed,
		Message:   "Storage operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, errDetails(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandardError finds the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// IsNotFound is true for RESOURCE_NOT_FOUND and for backend 404 replies.
func IsNotFound(err error) bool {
	stdErr, ok := AsStandardError(err)
	if !ok {
		return false
	}
	if stdErr.Code == ErrCodeResourceNotFound {
		return true
	}
	return stdErr.Code == ErrCodeUpstreamBackend && UpstreamStatus(stdErr) == http.StatusNotFound
}

// UpstreamStatus returns the backend HTTP status recorded on e, or 0.
func UpstreamStatus(e *StandardError) int {
	if e == nil || e.Metadata == nil {
		return 0
	}
	if s, ok := e.Metadata["status"].(int); ok {
		return s
	}
	return 0
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// HTTPStatus maps an error code to the response status the admin returns.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeResourceNotFound:
		return http.StatusNotFound
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeInvalidSpreadsheet, ErrCodeUnparseableDate,
		ErrCodeRowValidationFailed, ErrCodeBatchPolicyViolation,
		ErrCodeDuplicateSubmission, ErrCodeFormValidationFailed:
		return http.StatusOK
	case ErrCodeDraftExpired:
		return http.StatusFound
	case ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUpstreamBackend, ErrCodeResponseValidationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SPREADSHEET") || strings.Contains(codeStr, "ROW"):
		return "SPREADSHEET"
	case strings.Contains(codeStr, "POLICY") || strings.Contains(codeStr, "DUPLICATE"):
		return "POLICY"
	case strings.Contains(codeStr, "UPSTREAM") || strings.Contains(codeStr, "RESPONSE"):
		return "BACKEND"
	case strings.Contains(codeStr, "STORAGE"):
		return "STORAGE"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
