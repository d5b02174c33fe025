package types

import (
	"errors"
	"fmt"
)

// Error taxonomy for the engine. Callers match with errors.Is and
// decide retry behavior from the category:
//
//   - ValidationError: malformed input, rejected synchronously.
//   - ConcurrencyConflict: retryable by the caller with fresh state.
//   - IntegrityViolation: fatal to that round's trust status; recorded
//     as a critical alert and never auto-corrected.
//   - ExternalDependencyError: retryable with backoff.
//   - RateLimited: rejected with a typed reason.
var (
	ErrValidation          = errors.New("validation error")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrIntegrityViolation  = errors.New("integrity violation")
	ErrExternalDependency  = errors.New("external dependency error")
	ErrRateLimited         = errors.New("rate limited")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConcurrencyConflict, fmt.Sprintf(format, args...))
}

func Integrityf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrityViolation, fmt.Sprintf(format, args...))
}

func Externalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExternalDependency, fmt.Sprintf(format, args...))
}

func RateLimitedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRateLimited, fmt.Sprintf(format, args...))
}
