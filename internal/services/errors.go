package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed or unusable input.
	ErrValidation = errors.New("validation error")
	// ErrPermission marks a request denied by the authorization rules. It is
	// deliberately distinct from infrastructure failures so callers can show a
	// denial instead of retrying.
	ErrPermission = errors.New("permission denied")
	// ErrConflict marks a compare-and-set write that lost to a concurrent racer.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks a missing board, card, or user.
	ErrNotFound = errors.New("not found")
	// ErrExternalTool marks a failure inside a translation provider.
	ErrExternalTool = errors.New("external provider error")
	// ErrTransient marks failures that are safe to retry as-is.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsDenied reports whether an error represents an authorization denial rather
// than an infrastructure failure.
func IsDenied(err error) bool {
	return errors.Is(err, ErrPermission)
}

// IsConflict reports whether an error represents a lost race or a held lock.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation reports whether an error represents rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether an error represents a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
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
