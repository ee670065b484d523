package auth

import "time"

// Config tunes the authentication flows. Zero values are filled from
// DefaultConfig by New.
type Config struct {
	// OTPTTL bounds one-time code lifetime from issuance.
	OTPTTL time.Duration
	// OTPDigits is the fixed length of generated numeric codes.
	OTPDigits int
	// MinPasswordLength applies to registration and password reset.
	MinPasswordLength int
	// MailTimeout bounds each outbound delivery attempt. A timed-out
	// delivery fails the flow before any OTP state is persisted.
	MailTimeout time.Duration
	// IdentityTimeout bounds the external identity assertion call.
	IdentityTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		OTPTTL:            10 * time.Minute,
		OTPDigits:         6,
		MinPasswordLength: 8,
		MailTimeout:       10 * time.Second,
		IdentityTimeout:   10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.OTPTTL <= 0 {
		c.OTPTTL = def.OTPTTL
	}
	if c.OTPDigits <= 0 {
		c.OTPDigits = def.OTPDigits
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = def.MinPasswordLength
	}
	if c.MailTimeout <= 0 {
		c.MailTimeout = def.MailTimeout
	}
	if c.IdentityTimeout <= 0 {
		c.IdentityTimeout = def.IdentityTimeout
	}
	return c
}
