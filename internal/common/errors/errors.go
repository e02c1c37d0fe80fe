// Package errors provides standardized error handling for BPMN workflow integration.
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
	ErrCodeTemplateNotFound     ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateRenderFailed ErrorCode = "TEMPLATE_RENDER_FAILED"

	ErrCodeDeliveryFailed             ErrorCode = "DELIVERY_FAILED"
	ErrCodeAttachmentResolutionFailed ErrorCode = "ATTACHMENT_RESOLUTION_FAILED"

	ErrCodeQueueRecordNotFound ErrorCode = "QUEUE_RECORD_NOT_FOUND"
	ErrCodeInvalidRequest      ErrorCode = "INVALID_REQUEST"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeCacheFailure             ErrorCode = "CACHE_FAILURE"

	ErrCodeExternalServiceFailed ErrorCode = "EXTERNAL_SERVICE_FAILED"
	ErrCodeTimeout               ErrorCode = "TIMEOUT"

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
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
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

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message string, retryable bool, cause error) *StandardError {
	e := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NewTemplateNotFoundError reports a key without any template in scope.
func NewTemplateNotFoundError(key, partnerID string) *StandardError {
	e := newError(ErrCodeTemplateNotFound, "No notification template for key", false, nil)
	e.Details = fmt.Sprintf("key: %s, partnerId: %s", key, partnerID)
	return e
}

// NewTemplateRenderFailedError wraps an expression or markup failure.
func NewTemplateRenderFailedError(key string, err error) *StandardError {
	e := newError(ErrCodeTemplateRenderFailed, "Template rendering failed", false, err)
	e.Metadata = map[string]interface{}{"key": key}
	return e
}

// NewDeliveryFailedError wraps a transport rejection.
func NewDeliveryFailedError(channel string, err error) *StandardError {
	e := newError(ErrCodeDeliveryFailed, "Notification delivery failed", false, err)
	e.Metadata = map[string]interface{}{"channel": channel}
	return e
}

// NewAttachmentResolutionFailedError wraps a failure building attachments.
func NewAttachmentResolutionFailedError(err error) *StandardError {
	return newError(ErrCodeAttachmentResolutionFailed, "Attachment could not be resolved", false, err)
}

func NewQueueRecordNotFoundError(id string) *StandardError {
	e := newError(ErrCodeQueueRecordNotFound, "Queue record not found", false, nil)
	e.Details = fmt.Sprintf("id: %s", id)
	return e
}

// NewInvalidRequestError reports input that failed schema or field validation.
func NewInvalidRequestError(details string) *StandardError {
	e := newError(ErrCodeInvalidRequest, "Invalid request", false, nil)
	e.Details = details
	return e
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", true, err)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	e := newError(ErrCodeQueryExecutionFailed, "Database query execution error", true, err)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

// NewDatabaseInsertFailedError creates a retryable insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert error", true, err)
}

func NewCacheFailureError(err error) *StandardError {
	return newError(ErrCodeCacheFailure, "Template cache error", true, err)
}

// NewExternalServiceError wraps a transient failure of a remote dependency.
func NewExternalServiceError(service string, err error) *StandardError {
	e := newError(ErrCodeExternalServiceFailed, fmt.Sprintf("%s unavailable", service), true, err)
	e.Metadata = map[string]interface{}{"service": service}
	return e
}

func NewTimeoutError(service string, err error) *StandardError {
	e := newError(ErrCodeTimeout, fmt.Sprintf("%s timed out", service), true, err)
	e.Metadata = map[string]interface{}{"service": service}
	return e
}

// NewInternalError wraps anything that is not already a StandardError.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the codes caught by boundary events.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeTemplateNotFound:           "TEMPLATE_NOT_FOUND",
	ErrCodeTemplateRenderFailed:       "TEMPLATE_RENDER_FAILED",
	ErrCodeDeliveryFailed:             "DELIVERY_FAILED",
	ErrCodeAttachmentResolutionFailed: "ATTACHMENT_RESOLUTION_FAILED",
	ErrCodeQueueRecordNotFound:        "QUEUE_RECORD_NOT_FOUND",
	ErrCodeInvalidRequest:             "INVALID_REQUEST",
	ErrCodeDatabaseConnectionFailed:   "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:       "QUERY_EXECUTION_FAILED",
	ErrCodeDatabaseInsertFailed:       "DATABASE_INSERT_FAILED",
	ErrCodeCacheFailure:               "CACHE_FAILURE",
	ErrCodeExternalServiceFailed:      "EXTERNAL_SERVICE_FAILED",
	ErrCodeTimeout:                    "TIMEOUT",
}

// GetRetryCount returns the retry budget for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeExternalServiceFailed:
		return 3

	case ErrCodeCacheFailure,
		ErrCodeTimeout:
		return 2

	default:
		return 0 // business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
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

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TEMPLATE"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "DELIVERY") || strings.Contains(codeStr, "ATTACHMENT"):
		return "DELIVERY"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "QUEUE"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "INTEGRATION"
	default:
		return "OTHER"
	}
}
