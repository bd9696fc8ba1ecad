package donation

import (
	"errors"
	"fmt"
)

var (
	// ErrLoginRequired is returned for unauthenticated callers.
	ErrLoginRequired = errors.New("login required")
	// ErrAddressPending means the smart account is still provisioning; retry later.
	ErrAddressPending = errors.New("active address pending")
	// ErrInFlight is returned when a donation from the same address is still processing.
	ErrInFlight = errors.New("donation already in progress")
	// ErrSignatureRejected is returned when the donor declines to sign the permit.
	ErrSignatureRejected = errors.New("signature rejected by signer")
	// ErrSignerMismatch is returned when the permit signature does not recover to the donor.
	ErrSignerMismatch = errors.New("permit signed by a different account")
	// ErrSponsorUnavailable is returned when the permit path has no sponsor account configured.
	ErrSponsorUnavailable = errors.New("sponsor account not configured")
	// ErrWrongPath is returned when an operation does not apply to the caller's execution path.
	ErrWrongPath = errors.New("operation not available on this path")
)

// ValidationError rejects a request before any network call. It never moves a
// session to ERROR.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
