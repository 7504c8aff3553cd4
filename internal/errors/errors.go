package errors

import "fmt"

// Error codes
const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeAuthRequired       = "AUTH_REQUIRED"
	ErrCodeAuthRejected       = "AUTH_REJECTED"
	ErrCodeNoQuestionsForDate = "NO_QUESTIONS_FOR_DATE"
	ErrCodeMergeInconsistency = "MERGE_INCONSISTENCY"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string         // Error code (e.g., "NOT_FOUND", "CONFLICT")
	Message string         // Human-readable error message
	Status  int            // HTTP status code
	Details map[string]any // Optional machine-readable payload (e.g. username suggestions)
	Err     error          // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewConflictError creates a new CONFLICT error. details may carry hints for
// the client (e.g. alternative username suggestions) and can be nil.
func NewConflictError(message string, details map[string]any) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
		Status:  409,
		Details: details,
	}
}

// NewAuthRequiredError signals that the request carried no usable identity.
func NewAuthRequiredError() *AppError {
	return &AppError{
		Code:    ErrCodeAuthRequired,
		Message: "a device id or bearer token is required",
		Status:  401,
	}
}

// NewAuthRejectedError signals that a bearer token was present but invalid.
// Distinct from AUTH_REQUIRED so the client knows not to retry with the same
// credential.
func NewAuthRejectedError() *AppError {
	return &AppError{
		Code:    ErrCodeAuthRejected,
		Message: "bearer token rejected",
		Status:  401,
	}
}

// NewNoQuestionsForDateError is an operational failure: the daily pool was
// never populated for the date. It is never masked by fallback questions.
func NewNoQuestionsForDateError(date string) *AppError {
	return &AppError{
		Code:    ErrCodeNoQuestionsForDate,
		Message: fmt.Sprintf("no questions populated for date %s", date),
		Status:  503,
	}
}

// NewMergeInconsistencyError reports a merge that could not be applied
// atomically. The merge is re-entrant, so a retry from scratch is safe.
func NewMergeInconsistencyError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeMergeInconsistency,
		Message: "account merge failed and was rolled back",
		Status:  500,
		Err:     err,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  400,
	}
}
