package auth

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrforge/qrforge/internal/googleid"
	"github.com/qrforge/qrforge/internal/store"
	"github.com/qrforge/qrforge/internal/token"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

// fakeMailer records outbound mail and can be switched to fail.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

var otpInBody = regexp.MustCompile(`Your OTP: (\d+)`)

// lastOTP extracts the code from the most recent OTP email.
func (m *fakeMailer) lastOTP(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	match := otpInBody.FindStringSubmatch(m.sent[len(m.sent)-1].body)
	require.Len(t, match, 2)
	return match[1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

// fakeIdentity returns a fixed identity for one accepted assertion.
type fakeIdentity struct {
	accept string
	ident  googleid.Identity
}

func (f *fakeIdentity) Verify(_ context.Context, assertion string) (googleid.Identity, error) {
	if assertion != f.accept {
		return googleid.Identity{}, googleid.ErrAssertionInvalid
	}
	return f.ident, nil
}

type engineFixture struct {
	engine *Engine
	users  *store.MemoryUserRepository
	mailer *fakeMailer
	clock  time.Time
}

func (f *engineFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()

	tokens, err := token.NewManager(token.Config{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		TTL:    24 * time.Hour,
		Issuer: "qrforge",
	})
	require.NoError(t, err)

	f := &engineFixture{
		users:  store.NewMemoryUserRepository(),
		mailer: &fakeMailer{},
		clock:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	e, err := New(Config{}, Deps{
		Users:  f.users,
		Hasher: testHasher(t),
		Tokens: tokens,
		Mailer: f.mailer,
		Identity: &fakeIdentity{
			accept: "good-assertion",
			ident: googleid.Identity{
				Email:       "fed@example.com",
				SubjectID:   "google-sub-1",
				DisplayName: "Fed User",
			},
		},
	})
	require.NoError(t, err)
	e.setClock(func() time.Time { return f.clock })

	f.engine = e
	return f
}

var testDevice = DeviceInfo{
	Fingerprint: "fp-primary",
	UserAgent:   "test-agent",
	IP:          "203.0.113.7",
}

const (
	testEmail    = "alice@example.com"
	testPassword = "Str0ng!pw"
)

func registerAndVerify(t *testing.T, f *engineFixture) *store.User {
	t.Helper()
	ctx := context.Background()

	_, err := f.engine.Register(ctx, testEmail, testPassword, testDevice)
	require.NoError(t, err)

	u, _, err := f.engine.VerifyEmail(ctx, testEmail, f.mailer.lastOTP(t), testDevice)
	require.NoError(t, err)
	return u
}

func TestRegisterVerifyLoginLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.engine.Register(ctx, " Alice@Example.COM ", testPassword, testDevice)
	require.NoError(t, err)
	assert.Equal(t, testEmail, u.Email)
	assert.False(t, u.IsVerified)
	require.NotNil(t, u.OTP)
	assert.Equal(t, store.OTPPurposeRegister, u.OTP.Purpose)

	code := f.mailer.lastOTP(t)

	verified, tok, err := f.engine.VerifyEmail(ctx, testEmail, code, testDevice)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	require.NotNil(t, verified.VerifiedAt)
	assert.Nil(t, verified.OTP, "verification consumes the code")
	require.Len(t, verified.KnownDevices, 1)
	assert.Equal(t, testDevice.Fingerprint, verified.KnownDevices[0].DeviceID)
	assert.NotEmpty(t, tok)

	// The issued token resolves back to the account.
	got, err := f.engine.CurrentUser(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, verified.ID, got.ID)

	// Verified code is single-use.
	_, _, err = f.engine.VerifyEmail(ctx, testEmail, code, testDevice)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	// Login with the password works afterwards.
	_, tok2, err := f.engine.Login(ctx, testEmail, testPassword, testDevice)
	require.NoError(t, err)
	assert.NotEmpty(t, tok2)
}

func TestRegisterValidationAndConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Register(ctx, "not-an-email", testPassword, testDevice)
	assert.ErrorIs(t, err, ErrEmailInvalid)

	_, err = f.engine.Register(ctx, "admin@example.com", testPassword, testDevice)
	assert.ErrorIs(t, err, ErrEmailRestricted)

	_, err = f.engine.Register(ctx, testEmail, "weak", testDevice)
	assert.ErrorIs(t, err, ErrWeakPassword)

	registerAndVerify(t, f)
	_, err = f.engine.Register(ctx, testEmail, testPassword, testDevice)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterUnverifiedRetryOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Register(ctx, testEmail, testPassword, testDevice)
	require.NoError(t, err)
	firstCode := f.mailer.lastOTP(t)

	_, err = f.engine.Register(ctx, testEmail, "N3w!passwd", testDevice)
	require.NoError(t, err)
	secondCode := f.mailer.lastOTP(t)

	if firstCode != secondCode {
		_, _, err = f.engine.VerifyEmail(ctx, testEmail, firstCode, testDevice)
		assert.ErrorIs(t, err, ErrOTPInvalid)
	}

	_, _, err = f.engine.VerifyEmail(ctx, testEmail, secondCode, testDevice)
	require.NoError(t, err)

	// The retry's password is the one that sticks.
	_, _, err = f.engine.Login(ctx, testEmail, "N3w!passwd", testDevice)
	assert.NoError(t, err)
	_, _, err = f.engine.Login(ctx, testEmail, testPassword, testDevice)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterMailFailurePersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mailer.fail = true
	_, err := f.engine.Register(ctx, testEmail, testPassword, testDevice)
	assert.ErrorIs(t, err, ErrMailDelivery)

	_, err = f.users.FindByEmail(ctx, testEmail)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResendOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.ResendOTP(ctx, testEmail)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.engine.Register(ctx, testEmail, testPassword, testDevice)
	require.NoError(t, err)

	_, err = f.engine.ResendOTP(ctx, testEmail)
	require.NoError(t, err)
	assert.Equal(t, 2, f.mailer.count())

	_, _, err = f.engine.VerifyEmail(ctx, testEmail, f.mailer.lastOTP(t), testDevice)
	require.NoError(t, err)

	_, err = f.engine.ResendOTP(ctx, testEmail)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyEmailRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.VerifyEmail(ctx, testEmail, "123456", testDevice)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.engine.Register(ctx, testEmail, testPassword, testDevice)
	require.NoError(t, err)
	code := f.mailer.lastOTP(t)

	_, _, err = f.engine.VerifyEmail(ctx, testEmail, "000000", testDevice)
	assert.ErrorIs(t, err, ErrOTPInvalid)

	f.advance(10*time.Minute + time.Second)
	_, _, err = f.engine.VerifyEmail(ctx, testEmail, code, testDevice)
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestLoginRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.Login(ctx, "ghost@example.com", testPassword, testDevice)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.engine.Register(ctx, testEmail, testPassword, testDevice)
	require.NoError(t, err)

	_, _, err = f.engine.Login(ctx, testEmail, testPassword, testDevice)
	assert.ErrorIs(t, err, ErrAccountUnverified)

	_, _, err = f.engine.VerifyEmail(ctx, testEmail, f.mailer.lastOTP(t), testDevice)
	require.NoError(t, err)

	_, _, err = f.engine.Login(ctx, testEmail, "Wr0ng!pass", testDevice)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginNewDeviceNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registerAndVerify(t, f)
	before := f.mailer.count()

	// Same fingerprint as verification: no notification.
	_, _, err := f.engine.Login(ctx, testEmail, testPassword, testDevice)
	require.NoError(t, err)
	assert.Equal(t, before, f.mailer.count())

	// A never-seen fingerprint triggers one.
	other := DeviceInfo{Fingerprint: "fp-other", UserAgent: "other-agent", IP: "198.51.100.4"}
	_, _, err = f.engine.Login(ctx, testEmail, testPassword, other)
	require.NoError(t, err)
	require.Equal(t, before+1, f.mailer.count())
	assert.Contains(t, f.mailer.last(t).subject, "New device")

	u, err := f.users.FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.Len(t, u.KnownDevices, 2)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.ForgotPassword(ctx, testEmail)
	assert.ErrorIs(t, err, ErrUserNotFound)

	registerAndVerify(t, f)

	_, err = f.engine.ForgotPassword(ctx, testEmail)
	require.NoError(t, err)
	code := f.mailer.lastOTP(t)

	u, err := f.users.FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	require.NotNil(t, u.OTP)
	assert.Equal(t, store.OTPPurposeReset, u.OTP.Purpose)

	_, err = f.engine.ResetPassword(ctx, testEmail, "000000", "N3w!passwd", testDevice)
	assert.ErrorIs(t, err, ErrOTPInvalid)

	_, err = f.engine.ResetPassword(ctx, testEmail, code, "weak", testDevice)
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = f.engine.ResetPassword(ctx, testEmail, code, "N3w!passwd", testDevice)
	require.NoError(t, err)

	// Reset code is single-use.
	_, err = f.engine.ResetPassword(ctx, testEmail, code, "Oth3r!pass", testDevice)
	assert.ErrorIs(t, err, ErrOTPNotIssued)

	_, _, err = f.engine.Login(ctx, testEmail, testPassword, testDevice)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.engine.Login(ctx, testEmail, "N3w!passwd", testDevice)
	assert.NoError(t, err)
}

func TestResetCodeExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registerAndVerify(t, f)
	_, err := f.engine.ForgotPassword(ctx, testEmail)
	require.NoError(t, err)
	code := f.mailer.lastOTP(t)
	f.advance(10*time.Minute + time.Second)

	_, err = f.engine.ResetPassword(ctx, testEmail, code, "N3w!passwd", testDevice)
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestFederatedSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.FederatedSignIn(ctx, "bad-assertion", testDevice)
	assert.ErrorIs(t, err, ErrAssertionInvalid)

	u, tok, err := f.engine.FederatedSignIn(ctx, "good-assertion", testDevice)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
	assert.True(t, u.RegisteredViaGoogle)
	assert.Empty(t, u.PasswordHash)
	assert.Equal(t, "google-sub-1", u.GoogleID)
	assert.NotEmpty(t, tok)

	// Second sign-in reuses the account.
	again, _, err := f.engine.FederatedSignIn(ctx, "good-assertion", testDevice)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
}

func TestModeExclusivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Federated account rejects every local-password flow.
	_, _, err := f.engine.FederatedSignIn(ctx, "good-assertion", testDevice)
	require.NoError(t, err)

	_, err = f.engine.Register(ctx, "fed@example.com", testPassword, testDevice)
	assert.ErrorIs(t, err, ErrFederatedEmail)
	_, _, err = f.engine.Login(ctx, "fed@example.com", testPassword, testDevice)
	assert.ErrorIs(t, err, ErrFederatedEmail)
	_, err = f.engine.ForgotPassword(ctx, "fed@example.com")
	assert.ErrorIs(t, err, ErrFederatedEmail)

	// Local account rejects federated sign-in for the same email.
	f.engine.identity = &fakeIdentity{
		accept: "local-assertion",
		ident:  googleid.Identity{Email: testEmail, SubjectID: "google-sub-2"},
	}
	registerAndVerify(t, f)
	_, _, err = f.engine.FederatedSignIn(ctx, "local-assertion", testDevice)
	assert.ErrorIs(t, err, ErrLocalEmail)
}

func TestCurrentUserRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CurrentUser(ctx, "")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = f.engine.CurrentUser(ctx, "garbage")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	registerAndVerify(t, f)
	_, tok, err := f.engine.Login(ctx, testEmail, testPassword, testDevice)
	require.NoError(t, err)

	_, err = f.engine.CurrentUser(ctx, tok)
	require.NoError(t, err)
}

func TestDeviceRecordingIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registerAndVerify(t, f)
	for i := 0; i < 5; i++ {
		_, _, err := f.engine.Login(ctx, testEmail, testPassword, testDevice)
		require.NoError(t, err)
	}

	u, err := f.users.FindByEmail(ctx, testEmail)
	require.NoError(t, err)
	assert.Len(t, u.KnownDevices, 1)
}
