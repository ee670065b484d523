package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/qrforge/qrforge/internal/password"
	"github.com/qrforge/qrforge/internal/store"
)

// otpResult enumerates the outcomes of verifying a one-time code.
type otpResult int

const (
	otpOK otpResult = iota
	otpNoneIssued
	otpExpired
	otpInvalid
)

// otpManager owns the full life of a one-time code: generation from a
// cryptographically strong source, hashed-at-rest storage on the user
// record, fixed TTL expiry, and verification. Verification does not
// consume; callers clear the slot explicitly after success.
type otpManager struct {
	hasher *password.Hasher
	ttl    time.Duration
	digits int
	now    func() time.Time
}

// Issue generates a fixed-length numeric code, stores its hash and expiry
// on u (overwriting any in-flight code of either purpose), and returns the
// plaintext solely for out-of-band delivery. The plaintext is never
// persisted or logged.
func (m *otpManager) Issue(u *store.User, purpose store.OTPPurpose) (string, error) {
	code, err := generateNumericCode(m.digits)
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}

	hash, err := m.hasher.Hash(code)
	if err != nil {
		return "", fmt.Errorf("hashing otp: %w", err)
	}

	u.OTP = &store.OTPState{
		Purpose:   purpose,
		CodeHash:  hash,
		ExpiresAt: m.now().Add(m.ttl),
	}
	return code, nil
}

// Verify checks code against the in-flight slot for purpose. It fails
// closed: no slot, a slot issued for the other purpose, an expiry at or
// before now, or a hash mismatch all reject.
func (m *otpManager) Verify(u *store.User, code string, purpose store.OTPPurpose) otpResult {
	if u.OTP == nil || u.OTP.Purpose != purpose {
		return otpNoneIssued
	}
	// Exactly at the expiry instant rejects.
	if !m.now().Before(u.OTP.ExpiresAt) {
		return otpExpired
	}
	if !m.hasher.Verify(code, u.OTP.CodeHash) {
		return otpInvalid
	}
	return otpOK
}

// generateNumericCode draws a uniform value in [0, 10^digits) from
// crypto/rand and zero-pads it to the fixed length.
func generateNumericCode(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
