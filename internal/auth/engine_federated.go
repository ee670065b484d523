package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/qrforge/qrforge/internal/googleid"
	"github.com/qrforge/qrforge/internal/store"
)

// FederatedSignIn verifies an external identity assertion and signs the
// subject in, creating the account on first sight. Federated accounts are
// born verified and never hold a password; an email already bound to a
// local-password account is rejected so the two modes stay exclusive.
func (e *Engine) FederatedSignIn(ctx context.Context, assertion string, device DeviceInfo) (*store.User, string, error) {
	if e.identity == nil {
		return nil, "", fmt.Errorf("%w: no identity verifier configured", ErrDependencyUnavailable)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, e.config.IdentityTimeout)
	defer cancel()
	ident, err := e.identity.Verify(verifyCtx, assertion)
	if err != nil {
		if errors.Is(err, googleid.ErrAssertionInvalid) {
			return nil, "", ErrAssertionInvalid
		}
		return nil, "", fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}

	email := normalizeEmail(ident.Email)
	u, err := e.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, "", fmt.Errorf("looking up account: %w", err)
	}

	switch {
	case u == nil:
		now := e.now()
		u = &store.User{
			ID:                  newUserID(),
			Email:               email,
			IsVerified:          true,
			VerifiedAt:          &now,
			RegisteredViaGoogle: true,
			GoogleID:            ident.SubjectID,
			GoogleName:          ident.DisplayName,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		e.recordDevice(ctx, u, device, false)
		if err := e.users.Insert(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				// Lost a race with a concurrent first sign-in.
				return nil, "", ErrAlreadyRegistered
			}
			return nil, "", fmt.Errorf("creating account: %w", err)
		}
		e.log.Info("federated account created", zapEmail(email), zapUser(u.ID))

	case !u.RegisteredViaGoogle:
		return nil, "", ErrLocalEmail

	default:
		u.GoogleName = ident.DisplayName
		e.recordDevice(ctx, u, device, true)
		u.UpdatedAt = e.now()
		if err := e.users.Update(ctx, u); err != nil {
			e.log.Warn("persisting device sighting failed", zapUser(u.ID), zapErr(err))
		}
	}

	tok, err := e.issueSession(u)
	if err != nil {
		return nil, "", err
	}

	e.log.Info("federated sign-in succeeded", zapEmail(email), zapUser(u.ID))
	return u, tok, nil
}
