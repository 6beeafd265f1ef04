package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Message: "something went wrong",
	}
	if err.Error() != "something went wrong" {
		t.Errorf("expected 'something went wrong', got %v", err.Error())
	}

	wrappedErr := errors.New("underlying error")
	errWithWrap := &AppError{
		Message: "failed operation",
		Err:     wrappedErr,
	}
	expected := "failed operation: underlying error"
	if errWithWrap.Error() != expected {
		t.Errorf("expected %q, got %q", expected, errWithWrap.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("ffmpeg exited with status 1")
	err := NewConversionError("transcode failed", cause)
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause")
	}
}

func TestAppError_Code(t *testing.T) {
	err := NewUnsupportedFormatError(".aac")
	if err.Code() != "UNSUPPORTED_FORMAT" {
		t.Errorf("expected UNSUPPORTED_FORMAT, got %v", err.Code())
	}
}

func TestNewUnsupportedFormatError(t *testing.T) {
	err := NewUnsupportedFormatError(".aac")
	if err.Type != ErrorTypeUnsupportedFormat {
		t.Errorf("expected type %v, got %v", ErrorTypeUnsupportedFormat, err.Type)
	}
	if err.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", err.StatusCode)
	}
	if err.IsRetryable() {
		t.Error("unsupported format must not be retryable")
	}
}

func TestAppError_IsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want bool
	}{
		{
			name: "rate limit is retryable",
			err: &AppError{
				Type:       ErrorTypeRateLimit,
				StatusCode: http.StatusTooManyRequests,
			},
			want: true,
		},
		{
			name: "validation error is not retryable",
			err: &AppError{
				Type:       ErrorTypeValidation,
				StatusCode: http.StatusBadRequest,
			},
			want: false,
		},
		{
			name: "500 transcription error is retryable",
			err: &AppError{
				Type:       ErrorTypeTranscription,
				StatusCode: http.StatusInternalServerError,
			},
			want: true,
		},
		{
			name: "400 transcription error is not retryable",
			err: &AppError{
				Type:       ErrorTypeTranscription,
				StatusCode: http.StatusBadRequest,
			},
			want: false,
		},
		{
			name: "502 downstream error is retryable",
			err: &AppError{
				Type:       ErrorTypeDownstream,
				StatusCode: http.StatusBadGateway,
			},
			want: true,
		},
		{
			name: "conversion error is not retryable",
			err: &AppError{
				Type:       ErrorTypeConversion,
				StatusCode: http.StatusInternalServerError,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsRetryable(); got != tt.want {
				t.Errorf("AppError.IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
