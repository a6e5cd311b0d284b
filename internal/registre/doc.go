// Package registre talks to the upstream company-register extract API and
// turns its deeply nested payloads into flat, display-ready records.
//
// The lookup path is: Resolver -> TTL Cache -> Client -> Transform. Records
// are cached for a fixed window after transformation; an expired entry is
// indistinguishable from a cold miss. Upstream failures are classified as
// ErrNotFound, ErrInvalidInput, ErrUnavailable, or ErrUnknown and are never
// retried automatically.
package registre
