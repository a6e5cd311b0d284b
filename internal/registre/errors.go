// ABOUTME: Error taxonomy for upstream register failures
// ABOUTME: Handlers map these to caller-facing messages at the tool boundary

package registre

import "errors"

// Upstream failure classes. The client maps HTTP outcomes onto these; tool
// handlers convert them to error-flagged results rather than protocol errors.
var (
	// ErrNotFound means the register has no entry for the identifier.
	ErrNotFound = errors.New("company not found in register")
	// ErrInvalidInput means the register rejected the request parameters.
	ErrInvalidInput = errors.New("register rejected the request")
	// ErrUnavailable means the register could not be reached in time.
	ErrUnavailable = errors.New("register unavailable")
	// ErrUnknown covers any other non-success register response.
	ErrUnknown = errors.New("unexpected register response")
)
