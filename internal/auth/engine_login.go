package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/qrforge/qrforge/internal/store"
)

// Login authenticates a local account with email and password and issues
// a session token. Attempts are throttled per client IP. A sign-in from a
// fingerprint the account has never seen triggers a best-effort
// notification email.
func (e *Engine) Login(ctx context.Context, email, plaintext string, device DeviceInfo) (*store.User, string, error) {
	email = normalizeEmail(email)
	if err := mapLimiterError(e.limiter.CheckLogin(ctx, device.IP)); err != nil {
		return nil, "", err
	}

	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("looking up account: %w", err)
	}
	if u.RegisteredViaGoogle || u.PasswordHash == "" {
		return nil, "", ErrFederatedEmail
	}
	if !u.IsVerified {
		return nil, "", ErrAccountUnverified
	}
	if !e.hasher.Verify(plaintext, u.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	e.recordDevice(ctx, u, device, true)
	u.UpdatedAt = e.now()
	if err := e.users.Update(ctx, u); err != nil {
		// The credential check already passed; a failed device write
		// should not lock the user out.
		e.log.Warn("persisting device sighting failed", zapUser(u.ID), zapErr(err))
	}

	tok, err := e.issueSession(u)
	if err != nil {
		return nil, "", err
	}

	e.log.Info("login succeeded", zapEmail(email), zapUser(u.ID))
	return u, tok, nil
}
