package errors

import (
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "VALIDATION_ERROR"
	ErrorTypeUnsupportedFormat ErrorType = "UNSUPPORTED_FORMAT_ERROR"
	ErrorTypeConversion        ErrorType = "CONVERSION_ERROR"
	ErrorTypeTranscription     ErrorType = "TRANSCRIPTION_ERROR"
	ErrorTypeDownstream        ErrorType = "DOWNSTREAM_SERVICE_ERROR"
	ErrorTypeRateLimit         ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeNotFound          ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeInternal          ErrorType = "INTERNAL_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause to errors.Is/As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsRetryable determines if the operation that caused the error should be retried
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit:
		return true
	case ErrorTypeTranscription, ErrorTypeDownstream:
		// Usually only 5xx responses from the remote service are worth retrying
		return e.StatusCode >= 500
	default:
		return false
	}
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeNotFound,
		Message:       message,
		StatusCode:    http.StatusNotFound,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewUnsupportedFormatError creates an error for a media extension outside the
// known usable and convertible sets (400). Raised before any segmentation.
func NewUnsupportedFormatError(extension string) *AppError {
	return &AppError{
		Type:          ErrorTypeUnsupportedFormat,
		Message:       fmt.Sprintf("unsupported media format %q", extension),
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     "UNSUPPORTED_FORMAT",
		IsOperational: true,
		Recovery:      "Upload one of: mp3, flac, ogg, wav, mp4, m4a.",
	}
}

// NewConversionError creates a new conversion error (500). A failed transcode is
// fatal for the whole pipeline run.
func NewConversionError(message string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeConversion,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     "CONVERSION_FAILED",
		IsOperational: true,
		Recovery:      "Check that the uploaded file is a valid media file.",
		Err:           err,
	}
}

// NewTranscriptionError creates a new transcription error (500)
func NewTranscriptionError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeTranscription,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Try providing a clearer audio recording.",
		Err:           err,
	}
}

// NewTranscriptionStatusError creates a transcription error carrying the remote
// service's HTTP status so retryability can be judged from it.
func NewTranscriptionStatusError(message string, errorCode string, statusCode int) *AppError {
	return &AppError{
		Type:          ErrorTypeTranscription,
		Message:       message,
		StatusCode:    statusCode,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Try providing a clearer audio recording.",
	}
}

// NewDownstreamError creates a new downstream service error (500). Used for the
// text-generation and audit collaborators; reported verbatim, no automatic retry.
func NewDownstreamError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeDownstream,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Wait for the downstream service to become available and resubmit.",
		Err:           err,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeRateLimit,
		Message:       message,
		StatusCode:    http.StatusTooManyRequests,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}
