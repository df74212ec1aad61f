package annex

import "errors"

// ToolError represents a domain error from the git-annex wrapper.
//
// These are protocol/orchestration errors (malformed key, path not tracked,
// batch output mismatch, etc.) as opposed to plain infrastructure errors.
// Callers dispatch on Code via CodeOf rather than matching message strings.
type ToolError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Subject is the key, path, or URL related to the error (if applicable)
	Subject string
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Subject != "" {
		return e.Message + ": " + e.Subject
	}
	return e.Message
}

// ErrorCode represents the category of a wrapper error.
type ErrorCode int

const (
	// ErrUnsupportedBackend indicates key construction was requested for a
	// backend other than the supported hash-based one
	ErrUnsupportedBackend ErrorCode = iota

	// ErrMalformedKey indicates a key string does not match the expected
	// {backend}-s{size}--{digest}{suffix} structure
	ErrMalformedKey

	// ErrNotTracked indicates a path does not resolve into the annex
	// object store
	ErrNotTracked

	// ErrUnresolvedURL indicates an import could not determine a content key
	// for a URL and the caller disallowed ignoring it
	ErrUnresolvedURL

	// ErrKeyNotPresent indicates a post-import presence check failed
	ErrKeyNotPresent

	// ErrProcessFailure indicates the external tool exited non-zero
	ErrProcessFailure

	// ErrBatchConsistency indicates the output line count of a batched
	// invocation does not match the call count
	ErrBatchConsistency
)

// NewUnsupportedBackendError creates a ToolError for an unimplemented key backend.
func NewUnsupportedBackendError(backend string) *ToolError {
	return &ToolError{
		Code:    ErrUnsupportedBackend,
		Message: "unsupported key backend",
		Subject: backend,
	}
}

// NewMalformedKeyError creates a ToolError for an unparseable key string.
func NewMalformedKeyError(key string) *ToolError {
	return &ToolError{
		Code:    ErrMalformedKey,
		Message: "malformed key",
		Subject: key,
	}
}

// NewNotTrackedError creates a ToolError for a path outside the annex.
func NewNotTrackedError(path string) *ToolError {
	return &ToolError{
		Code:    ErrNotTracked,
		Message: "not a link into the annex",
		Subject: path,
	}
}

// NewUnresolvedURLError creates a ToolError for a URL no remote could resolve.
func NewUnresolvedURLError(url string) *ToolError {
	return &ToolError{
		Code:    ErrUnresolvedURL,
		Message: "no content key resolved for url",
		Subject: url,
	}
}

// NewKeyNotPresentError creates a ToolError for a failed presence check.
func NewKeyNotPresentError(key string) *ToolError {
	return &ToolError{
		Code:    ErrKeyNotPresent,
		Message: "key not present after import",
		Subject: key,
	}
}

// NewProcessFailureError creates a ToolError for a non-zero tool exit.
func NewProcessFailureError(detail string) *ToolError {
	return &ToolError{
		Code:    ErrProcessFailure,
		Message: "external tool failed",
		Subject: detail,
	}
}

// NewBatchConsistencyError creates a ToolError for an output/call count mismatch.
func NewBatchConsistencyError(detail string) *ToolError {
	return &ToolError{
		Code:    ErrBatchConsistency,
		Message: "batch output does not match call count",
		Subject: detail,
	}
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed.
// The second return is false when err is not a ToolError.
func CodeOf(err error) (ErrorCode, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Code, true
	}
	return 0, false
}

// IsCode reports whether err carries the given ErrorCode.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
