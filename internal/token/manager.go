// Package token issues and verifies the signed, time-bound session tokens
// that prove an authenticated identity, and owns their cookie delivery
// contract. Tokens are stateless: logout clears the client cookie only, a
// leaked token stays valid until its natural expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel results of Verify. The HTTP boundary collapses all of them into
// one unauthorized outcome so clients cannot distinguish failure reasons.
var (
	ErrMalformed = errors.New("session token malformed")
	ErrInvalid   = errors.New("session token invalid")
	ErrExpired   = errors.New("session token expired")
)

// Config holds the signing material and claims settings for session tokens.
type Config struct {
	// Secret is the HS256 signing key. Must be at least 32 bytes.
	Secret []byte
	// TTL bounds token lifetime from issuance.
	TTL time.Duration
	// Issuer is stamped into and required from every token.
	Issuer string
}

// Manager signs and verifies session tokens. Safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

type sessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	return &Manager{config: cfg, now: time.Now}, nil
}

// Issue returns a signed token embedding userID with the configured TTL.
func (m *Manager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("empty user id")
	}

	now := m.now()
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			Issuer:    m.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Verify checks signature integrity first, then expiry, and returns the
// embedded user id. Signature or structure failures map to ErrMalformed or
// ErrInvalid; a valid but stale token maps to ErrExpired.
func (m *Manager) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrMalformed
		default:
			return "", ErrInvalid
		}
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return "", ErrInvalid
	}

	return claims.UserID, nil
}
