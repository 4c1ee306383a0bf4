package conversion

import (
	"errors"
	"fmt"
)

// Static errors for conversion operations.
var (
	// ErrValidation is returned when a request is rejected before any work is done.
	ErrValidation = errors.New("validation failed")
	// ErrCompressionBudgetExceeded is returned when the artifact is still over
	// budget after the last permitted attempt.
	ErrCompressionBudgetExceeded = errors.New("compression budget exceeded")
	// ErrInvalidTransition is returned when an invalid state transition is attempted.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Validation error codes.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeMissingFile   = "MISSING_FILE"
	CodeInvalidFormat = "INVALID_FORMAT"
	CodeFileTooLarge  = "FILE_TOO_LARGE"
)

// Validation messages returned to callers verbatim.
const (
	MsgNoFileProvided = "No video file provided"
	MsgNoFileSelected = "No video file selected"
	MsgInvalidFormat  = "Invalid file format. Supported formats: mp4, webm, mov, avi"
)

// ValidationError describes why a request was rejected.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FileTooLarge returns the validation error for an upload over limitBytes.
func FileTooLarge(limitBytes int64) *ValidationError {
	return newValidationError(CodeFileTooLarge, "File size exceeds %dMB limit", limitBytes/(1<<20))
}
