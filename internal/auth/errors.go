package auth

import "errors"

var (
	// ErrEmailInvalid is returned for a malformed email address.
	ErrEmailInvalid = errors.New("invalid email address")
	// ErrEmailRestricted is returned when the email's username matches
	// the restricted blocklist.
	ErrEmailRestricted = errors.New("restricted word used in email")
	// ErrWeakPassword is returned when a password fails the strength policy.
	ErrWeakPassword = errors.New("password does not meet strength requirements")
	// ErrAlreadyRegistered is returned when a verified local account
	// already owns the email.
	ErrAlreadyRegistered = errors.New("email already registered")
	// ErrFederatedEmail is returned when a local flow touches an email
	// bound to a federated account.
	ErrFederatedEmail = errors.New("email registered with Google; sign in with Google")
	// ErrLocalEmail is returned when federated sign-in targets an email
	// bound to a local-password account.
	ErrLocalEmail = errors.New("email registered with a password; log in with your password")
	// ErrUserNotFound is returned when no account owns the email.
	//
	// Login deliberately distinguishes this from ErrInvalidCredentials,
	// matching the observed behavior; the enumeration risk is documented
	// in DESIGN.md rather than silently fixed.
	ErrUserNotFound = errors.New("no account found with this email")
	// ErrInvalidCredentials is returned on a password mismatch.
	ErrInvalidCredentials = errors.New("invalid password")
	// ErrAccountUnverified is returned when an unverified account
	// attempts to log in.
	ErrAccountUnverified = errors.New("account not verified; verify your email first")
	// ErrAlreadyVerified is returned when verification is retried on a
	// verified account.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrOTPNotIssued is returned when no code is on record for the
	// requested purpose.
	ErrOTPNotIssued = errors.New("no OTP on record")
	// ErrOTPExpired is returned for a code past its expiry.
	ErrOTPExpired = errors.New("OTP has expired")
	// ErrOTPInvalid is returned for a code mismatch.
	ErrOTPInvalid = errors.New("invalid OTP")
	// ErrAssertionInvalid is returned when the external provider rejects
	// a federated identity assertion.
	ErrAssertionInvalid = errors.New("identity assertion could not be verified")
	// ErrSessionInvalid is returned when a session token is missing,
	// malformed, tampered with, or expired.
	ErrSessionInvalid = errors.New("session is invalid or expired")
	// ErrRateLimited is returned when a flow exceeds its request budget.
	ErrRateLimited = errors.New("too many attempts; try again later")
	// ErrMailDelivery is returned when OTP delivery fails or times out.
	// OTP state is not persisted in that case; the client re-submits.
	ErrMailDelivery = errors.New("could not deliver email")
	// ErrDependencyUnavailable is returned when a backing service
	// (rate-limit store, identity provider transport) fails.
	ErrDependencyUnavailable = errors.New("authentication backend unavailable")
)
