package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/qrforge/qrforge/internal/store"
)

// VerifyEmail completes registration: it checks the one-time code, marks
// the account verified, consumes the code, records the verifying device,
// and issues the first session token.
func (e *Engine) VerifyEmail(ctx context.Context, email, code string, device DeviceInfo) (*store.User, string, error) {
	email = normalizeEmail(email)
	if err := mapLimiterError(e.limiter.CheckVerify(ctx, email)); err != nil {
		return nil, "", err
	}

	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("looking up account: %w", err)
	}
	if u.IsVerified {
		return nil, "", ErrAlreadyVerified
	}

	switch e.otp.Verify(u, code, store.OTPPurposeRegister) {
	case otpNoneIssued:
		return nil, "", ErrOTPNotIssued
	case otpExpired:
		return nil, "", ErrOTPExpired
	case otpInvalid:
		return nil, "", ErrOTPInvalid
	}

	now := e.now()
	u.IsVerified = true
	u.VerifiedAt = &now
	u.ClearOTP()
	u.UpdatedAt = now
	// The verifying device is the account's first known device; no
	// new-device notification for it.
	e.recordDevice(ctx, u, device, false)

	if err := e.users.Update(ctx, u); err != nil {
		return nil, "", fmt.Errorf("updating account: %w", err)
	}

	tok, err := e.issueSession(u)
	if err != nil {
		return nil, "", err
	}

	e.log.Info("email verified", zapEmail(email), zapUser(u.ID))
	return u, tok, nil
}
