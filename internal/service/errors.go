package service

import "errors"

// Sentinel errors shared by every backend. Backends wrap them with context;
// callers test with errors.Is.
var (
	// ErrNotFound is returned when a document or account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned when the store refuses access to a document.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnauthenticated is returned when an operation needs a signed-in account
	// or the stored session can no longer be refreshed.
	ErrUnauthenticated = errors.New("not signed in")

	// ErrInvalidCredentials is returned when the email/password pair is rejected.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrWeakPassword is returned when the provider rejects a password as too weak.
	ErrWeakPassword = errors.New("password too weak")

	// ErrTimeout is returned when a remote call exceeds its deadline.
	ErrTimeout = errors.New("request timed out")
)

// IsAuthError reports whether err means the caller must (re)authenticate.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrPermissionDenied)
}
