package shared

import "errors"

// Sentinel errors shared across the dashboard's modules. Handlers map these
// to HTTP statuses; repositories translate driver errors into them.
var (
	// ErrNotFound covers any missing transaction, clip, camera or batch.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates a failed dashboard login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when a mutating request omits the token header.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the presented token fails verification.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
