package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/qrforge/qrforge/internal/store"
	"github.com/qrforge/qrforge/internal/token"
)

// CurrentUser resolves a session token to its account. Any token defect
// (missing, malformed, tampered, expired) comes back as ErrSessionInvalid,
// as does a token whose subject no longer exists.
func (e *Engine) CurrentUser(ctx context.Context, raw string) (*store.User, error) {
	if raw == "" {
		return nil, ErrSessionInvalid
	}

	userID, err := e.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) || errors.Is(err, token.ErrMalformed) || errors.Is(err, token.ErrInvalid) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("verifying session token: %w", err)
	}

	u, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	return u, nil
}
