package errors

// ErrorCode is the machine-readable classification of an AppError.
// Codes are stable: clients and log queries key on them.
type ErrorCode string

// Request errors. None of these clear up on retry.
const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField  ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	ErrCodeInvalidAudio  ErrorCode = "INVALID_AUDIO"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeConflict      ErrorCode = "CONFLICT"
)

// Load and timing errors. Retrying after a pause may succeed.
const (
	ErrCodeTimeout     ErrorCode = "TIMEOUT"
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Speech-processing errors.
const (
	// ErrCodeTranscriptionFailed marks a lost transcription window.
	// The audio behind it is dropped, so the failure is final.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"

	// ErrCodeDiarizationFailed marks a failed diarization call. The
	// recording still exists, so the client may submit it again.
	ErrCodeDiarizationFailed ErrorCode = "DIARIZATION_FAILED"

	// ErrCodeModelUnavailable marks a backend whose model is not
	// loaded or not reachable.
	ErrCodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"
)

// ErrCodeInternal is the fallback for unexpected failures.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

// IsRetryableCode reports whether a client may reasonably retry an
// operation that failed with this code.
func IsRetryableCode(code ErrorCode) bool {
	switch code {
	case ErrCodeTimeout, ErrCodeRateLimited, ErrCodeModelUnavailable, ErrCodeDiarizationFailed:
		return true
	}
	return false
}
