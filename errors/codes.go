package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors, raised when a stage or job is constructed.
const (
	// ErrCodeInvalidConfig indicates a stage or job was configured inconsistently.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeMissingField indicates a required configuration field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Data errors, raised while elements are pulled.
const (
	// ErrCodeInvalidInput indicates an element could not be decoded or converted.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeEmptySequence indicates a terminal operation needed at least one element.
	ErrCodeEmptySequence ErrorCode = "EMPTY_SEQUENCE"
)

// Collaborator errors
const (
	// ErrCodeNotFound indicates an archive, object or key does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeSourceFailed indicates a source could not be read.
	ErrCodeSourceFailed ErrorCode = "SOURCE_FAILED"
	// ErrCodeSinkFailed indicates a sink could not be written.
	ErrCodeSinkFailed ErrorCode = "SINK_FAILED"
	// ErrCodeUnavailable indicates a backing service is temporarily unavailable.
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
	// ErrCodeTimeout indicates a collaborator call timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// ErrCodeInternal indicates an unexpected failure.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeSourceFailed: true,
	ErrCodeSinkFailed:   true,
	ErrCodeUnavailable:  true,
	ErrCodeTimeout:      true,
	ErrCodeInternal:     false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
