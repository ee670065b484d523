package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/qrforge/qrforge/internal/store"
)

// Register starts a local account. A verified email is rejected up front;
// an unverified one is treated as a retry and its credentials and code are
// overwritten in place. The OTP email is delivered before anything is
// persisted, so a delivery failure leaves no partial state behind.
func (e *Engine) Register(ctx context.Context, email, plaintext string, device DeviceInfo) (*store.User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(plaintext, e.config.MinPasswordLength); err != nil {
		return nil, err
	}
	if err := mapLimiterError(e.limiter.CheckRegister(ctx, email)); err != nil {
		return nil, err
	}

	existing, err := e.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if existing != nil && existing.IsVerified {
		if existing.RegisteredViaGoogle {
			return nil, ErrFederatedEmail
		}
		return nil, ErrAlreadyRegistered
	}

	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := e.now()
	u := existing
	if u == nil {
		u = &store.User{
			ID:        newUserID(),
			Email:     email,
			CreatedAt: now,
		}
	}
	u.PasswordHash = hash
	u.UpdatedAt = now

	code, err := e.otp.Issue(u, store.OTPPurposeRegister)
	if err != nil {
		return nil, err
	}
	if err := e.deliverOTP(ctx, email, code, store.OTPPurposeRegister); err != nil {
		return nil, err
	}

	e.recordDevice(ctx, u, device, false)

	if existing == nil {
		if err := e.users.Insert(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				// Lost a race with a concurrent registration.
				return nil, ErrAlreadyRegistered
			}
			return nil, fmt.Errorf("creating account: %w", err)
		}
	} else {
		if err := e.users.Update(ctx, u); err != nil {
			return nil, fmt.Errorf("updating account: %w", err)
		}
	}

	e.log.Info("registration started", zapEmail(email), zapUser(u.ID))
	return u, nil
}

// ResendOTP reissues the registration code for an unverified account. It
// shares the registration budget so resends cannot bypass throttling.
func (e *Engine) ResendOTP(ctx context.Context, email string) (*store.User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := mapLimiterError(e.limiter.CheckRegister(ctx, email)); err != nil {
		return nil, err
	}

	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}

	code, err := e.otp.Issue(u, store.OTPPurposeRegister)
	if err != nil {
		return nil, err
	}
	if err := e.deliverOTP(ctx, email, code, store.OTPPurposeRegister); err != nil {
		return nil, err
	}

	u.UpdatedAt = e.now()
	if err := e.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("updating account: %w", err)
	}

	e.log.Info("otp resent", zapEmail(email), zapUser(u.ID))
	return u, nil
}
