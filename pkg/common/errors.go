package common

import "errors"

// Error categories shared across services and mapped to HTTP status codes by
// the handler layer. Services wrap these with fmt.Errorf("...: %w", ...) so
// callers can classify with errors.Is while keeping the detail message.
var (
	// ErrValidation marks a malformed or incomplete request.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks an absent pipeline, connector, version or deployment.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a lost race, e.g. restoring a pipeline the retention
	// sweep already purged, or activating a nonexistent version.
	ErrConflict = errors.New("conflict")
)
