package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatTransport   ErrorCategory = "transport"   // Connection, dial, or I/O failure
	ErrCatProtocol    ErrorCategory = "protocol"    // Malformed wire data
	ErrCatUpstream    ErrorCategory = "upstream"    // Agent service reported failure
	ErrCatPersistence ErrorCategory = "persistence" // Storage failure
	ErrCatValidation  ErrorCategory = "validation"  // Invalid input
	ErrCatTimeout     ErrorCategory = "timeout"     // Operation timed out
	ErrCatState       ErrorCategory = "state"       // State corruption/conflict
	ErrCatNotFound    ErrorCategory = "not_found"   // Resource not found
	ErrCatInternal    ErrorCategory = "internal"    // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrTransport creates a transport error (connection dropped, dial failed).
func ErrTransport(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTransport,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrProtocol creates a protocol error (unparseable wire data).
func ErrProtocol(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatProtocol,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrUpstream creates an error reported by an agent service itself.
func ErrUpstream(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatUpstream,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrPersistence creates a storage error. Persistence errors are run-scoped:
// they mark the run's save as failed but never invalidate agent state.
func ErrPersistence(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatPersistence,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrInternal creates an internal error.
func ErrInternal(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatInternal,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return IsCategory(err, ErrCatTransport) }

// IsProtocol reports whether err is a protocol failure.
func IsProtocol(err error) bool { return IsCategory(err, ErrCatProtocol) }

// IsUpstream reports whether err is an agent-reported failure.
func IsUpstream(err error) bool { return IsCategory(err, ErrCatUpstream) }

// IsPersistence reports whether err is a storage failure.
func IsPersistence(err error) bool { return IsCategory(err, ErrCatPersistence) }

// Predefined error codes
const (
	CodeStreamCut        = "STREAM_CUT"         // Connection closed before COMPLETE/ERROR
	CodeBadFrame         = "BAD_FRAME"          // Event frame failed to decode
	CodeDecoderDone      = "DECODER_DONE"       // Read after terminal frame
	CodeAgentFailed      = "AGENT_FAILED"       // Agent sent an ERROR frame
	CodeBadStatus        = "BAD_STATUS"         // Non-2xx HTTP response
	CodeBadResponse      = "BAD_RESPONSE"       // Unparseable response body
	CodeSaveFailed       = "SAVE_FAILED"        // Run persistence failed
	CodeRunNotFound      = "RUN_NOT_FOUND"      // Unknown run ID
	CodeEmptyInput       = "EMPTY_INPUT"        // Run input missing
	CodeUnknownAgent     = "UNKNOWN_AGENT"      // Agent ID not in the pipeline table
	CodeInvalidTable     = "INVALID_TABLE"      // Pipeline table failed validation
	CodeRunCancelled     = "RUN_CANCELLED"      // Run cancelled by caller
	CodeResultUndecodable = "RESULT_UNDECODABLE" // COMPLETE payload not valid JSON
)
