package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/qrforge/qrforge/internal/store"
)

// ForgotPassword issues a reset code to an existing local account. As with
// registration, the email goes out before the code is persisted.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (*store.User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := mapLimiterError(e.limiter.CheckReset(ctx, email)); err != nil {
		return nil, err
	}

	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if u.RegisteredViaGoogle || u.PasswordHash == "" {
		return nil, ErrFederatedEmail
	}
	if !u.IsVerified {
		return nil, ErrAccountUnverified
	}

	code, err := e.otp.Issue(u, store.OTPPurposeReset)
	if err != nil {
		return nil, err
	}
	if err := e.deliverOTP(ctx, email, code, store.OTPPurposeReset); err != nil {
		return nil, err
	}

	u.UpdatedAt = e.now()
	if err := e.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("updating account: %w", err)
	}

	e.log.Info("password reset requested", zapEmail(email), zapUser(u.ID))
	return u, nil
}

// ResetPassword checks the reset code, replaces the credential, and
// consumes the code. It does not issue a session; the user logs in with
// the new password. A confirmation email is sent best-effort.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string, device DeviceInfo) (*store.User, error) {
	email = normalizeEmail(email)
	if err := mapLimiterError(e.limiter.CheckReset(ctx, email)); err != nil {
		return nil, err
	}

	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if u.RegisteredViaGoogle || u.PasswordHash == "" {
		return nil, ErrFederatedEmail
	}

	switch e.otp.Verify(u, code, store.OTPPurposeReset) {
	case otpNoneIssued:
		return nil, ErrOTPNotIssued
	case otpExpired:
		return nil, ErrOTPExpired
	case otpInvalid:
		return nil, ErrOTPInvalid
	}

	if err := validatePassword(newPassword, e.config.MinPasswordLength); err != nil {
		return nil, err
	}
	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u.PasswordHash = hash
	u.ClearOTP()
	u.UpdatedAt = e.now()
	e.recordDevice(ctx, u, device, false)

	if err := e.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("updating account: %w", err)
	}

	e.notifyPasswordChanged(ctx, u)
	e.log.Info("password reset completed", zapEmail(email), zapUser(u.ID))
	return u, nil
}

// notifyPasswordChanged sends a best-effort confirmation; failures are
// logged and dropped.
func (e *Engine) notifyPasswordChanged(ctx context.Context, u *store.User) {
	if e.mailer == nil {
		return
	}
	body := "<p>Your password was changed. If this wasn't you, reset it immediately.</p>"
	mailCtx, cancel := context.WithTimeout(ctx, e.config.MailTimeout)
	defer cancel()
	if err := e.mailer.Send(mailCtx, u.Email, "Your password was changed", body); err != nil {
		e.log.Warn("password-change notification failed", zapUser(u.ID), zapErr(err))
	}
}
