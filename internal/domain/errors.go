package domain

import "fmt"

// Error types for consistent error handling across the API.
// Every failure is per-request; none of these is fatal to the process.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input). The caller
// can correct the input and retry.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrWeakPassword indicates the password fails the strength policy.
type ErrWeakPassword struct {
	Reason string
}

func (e *ErrWeakPassword) Error() string {
	return fmt.Sprintf("weak password: %s", e.Reason)
}

// ErrDuplicateEmail indicates the email is already registered.
type ErrDuplicateEmail struct {
	Email string
}

func (e *ErrDuplicateEmail) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrUnauthorized indicates invalid credentials or an invalid,
// expired or forged token. The message is deliberately uniform for
// credential failures so callers cannot enumerate accounts.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the authenticated account lacks permission
// for the operation (role or ownership mismatch).
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrConflict indicates a concurrent-update conflict (stale profile
// version). The caller should re-read and retry.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrExternalService indicates a failure in the persistence or
// another external collaborator.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
