// Package auth implements the account-security core: OTP-based
// registration and verification, password login, password reset, federated
// sign-in, session issuance, and known-device tracking. All flows run to
// completion within one request; every external call (persistence, mail,
// identity provider) goes through an injected dependency with an explicit
// timeout where delivery can stall.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qrforge/qrforge/internal/googleid"
	"github.com/qrforge/qrforge/internal/mail"
	"github.com/qrforge/qrforge/internal/password"
	"github.com/qrforge/qrforge/internal/store"
	"github.com/qrforge/qrforge/internal/token"
)

// DeviceInfo describes the requesting device as seen by one flow. The
// fingerprint is derived upstream by the HTTP layer; the engine only
// records and classifies it.
type DeviceInfo struct {
	Fingerprint string
	UserAgent   string
	IP          string
}

// Deps are the collaborators the engine composes. Users, Hasher, and
// Tokens are required; Mailer is required for the OTP flows; Identity is
// required for federated sign-in; Limiter and Logger are optional.
type Deps struct {
	Users    store.UserRepository
	Hasher   *password.Hasher
	Tokens   *token.Manager
	Mailer   mail.Sender
	Identity googleid.Verifier
	Limiter  *RateLimiter
	Logger   *zap.Logger
}

// Engine orchestrates the authentication flows. Construct with New; safe
// for concurrent use afterwards.
type Engine struct {
	config   Config
	users    store.UserRepository
	hasher   *password.Hasher
	tokens   *token.Manager
	mailer   mail.Sender
	identity googleid.Verifier
	limiter  *RateLimiter
	otp      *otpManager
	log      *zap.Logger
	now      func() time.Time
}

// New validates deps and returns a ready Engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Users == nil {
		return nil, errors.New("auth: user repository is required")
	}
	if deps.Hasher == nil {
		return nil, errors.New("auth: secret hasher is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("auth: token manager is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	cfg = cfg.withDefaults()
	now := time.Now

	return &Engine{
		config:   cfg,
		users:    deps.Users,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		mailer:   deps.Mailer,
		identity: deps.Identity,
		limiter:  deps.Limiter,
		otp: &otpManager{
			hasher: deps.Hasher,
			ttl:    cfg.OTPTTL,
			digits: cfg.OTPDigits,
			now:    now,
		},
		log: deps.Logger,
		now: now,
	}, nil
}

// setClock rebinds the engine's notion of now. Test hook only.
func (e *Engine) setClock(now func() time.Time) {
	e.now = now
	e.otp.now = now
}

func newUserID() string {
	return uuid.NewString()
}

// recordDevice upserts the sighting into the user's known devices and,
// when the fingerprint is new and notify is set, sends a best-effort
// notification email. Notification failures are logged and dropped; they
// never fail the flow.
func (e *Engine) recordDevice(ctx context.Context, u *store.User, d DeviceInfo, notify bool) {
	if d.Fingerprint == "" {
		return
	}

	isNew := u.RecordDevice(store.Device{
		DeviceID:  d.Fingerprint,
		UserAgent: d.UserAgent,
		IP:        d.IP,
		LastUsed:  e.now(),
	})
	if !isNew || !notify || e.mailer == nil {
		return
	}

	body := fmt.Sprintf(
		"<p>A sign-in was detected from a new device:</p><p>IP: %s<br>Device: %s<br>Time: %s</p>",
		d.IP, d.UserAgent, e.now().UTC().Format(time.RFC1123),
	)
	mailCtx, cancel := context.WithTimeout(ctx, e.config.MailTimeout)
	defer cancel()
	if err := e.mailer.Send(mailCtx, u.Email, "New device sign-in detected", body); err != nil {
		e.log.Warn("new-device notification failed",
			zap.String("userId", u.ID),
			zap.Error(err),
		)
	}
}

// deliverOTP sends the code with the configured timeout. It is called
// before the OTP state is persisted: a failed or timed-out delivery leaves
// the user record untouched, so the client simply re-submits.
func (e *Engine) deliverOTP(ctx context.Context, email, code string, purpose store.OTPPurpose) error {
	if e.mailer == nil {
		return fmt.Errorf("%w: no mail transport configured", ErrMailDelivery)
	}

	subject := "Your OTP for registration"
	if purpose == store.OTPPurposeReset {
		subject = "Your OTP for password reset"
	}
	body := fmt.Sprintf("<h1>Your OTP: %s</h1><p>Valid for %d minutes</p>",
		code, int(e.config.OTPTTL.Minutes()))

	mailCtx, cancel := context.WithTimeout(ctx, e.config.MailTimeout)
	defer cancel()
	if err := e.mailer.Send(mailCtx, email, subject, body); err != nil {
		e.log.Error("otp delivery failed", zap.String("email", email), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

func zapEmail(email string) zap.Field { return zap.String("email", email) }
func zapUser(id string) zap.Field    { return zap.String("userId", id) }
func zapErr(err error) zap.Field     { return zap.Error(err) }

func (e *Engine) issueSession(u *store.User) (string, error) {
	tok, err := e.tokens.Issue(u.ID)
	if err != nil {
		return "", fmt.Errorf("issuing session token: %w", err)
	}
	return tok, nil
}
