package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify failures across the capture, storage, and
// export services. Callers wrap component errors with one of these so the IPC
// layer and CLI can branch on failure class without string matching.
var (
	// ErrValidation marks user-input failures (empty label, duplicate key,
	// empty export username). Recoverable by re-prompting, never a system fault.
	ErrValidation = errors.New("validation error")
	// ErrUnavailable marks transient resource absence (no active session, no
	// frame ready, destination could not be opened).
	ErrUnavailable = errors.New("resource unavailable")
	// ErrIO marks encode, stream, or archive write failures.
	ErrIO = errors.New("io failure")
	// ErrConflict marks invariant collisions such as a second capture arriving
	// while one is still awaiting review.
	ErrConflict = errors.New("conflict")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Class returns a short machine-readable name for the failure class of err,
// or "unknown" when err carries no marker.
func Class(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
