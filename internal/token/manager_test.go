package token

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		TTL:    24 * time.Hour,
		Issuer: "qrforge",
	})
	require.NoError(t, err)
	return m
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	_, err := NewManager(Config{Secret: []byte("short"), TTL: time.Hour})
	assert.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := testManager(t)

	tok, err := m.Issue("user-123")
	require.NoError(t, err)

	uid, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", uid)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	m := testManager(t)

	tok, err := m.Issue("user-123")
	require.NoError(t, err)

	// Flip one byte at every position; no variant may verify.
	raw := []byte(tok)
	for i := range raw {
		tampered := make([]byte, len(raw))
		copy(tampered, raw)
		tampered[i] ^= 0x01
		if string(tampered) == tok {
			continue
		}
		_, err := m.Verify(string(tampered))
		assert.Error(t, err, "tampered byte at %d must not verify", i)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := testManager(t)

	issued := time.Now()
	m.now = func() time.Time { return issued }
	tok, err := m.Issue("user-123")
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(24*time.Hour + time.Minute) }
	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsWrongKeyAndGarbage(t *testing.T) {
	m := testManager(t)

	other, err := NewManager(Config{
		Secret: []byte("ffffffffffffffffffffffffffffffff"),
		TTL:    time.Hour,
		Issuer: "qrforge",
	})
	require.NoError(t, err)

	tok, err := other.Issue("user-123")
	require.NoError(t, err)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = m.Verify("garbage")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = m.Verify("")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSessionCookieContract(t *testing.T) {
	c := SessionCookie("abc", 24*time.Hour, true)
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 86400, c.MaxAge)

	cleared := ClearCookie(true)
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, "/", cleared.Path)
}

func TestFromRequestPrefersCookieOverBearer(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)

	_, ok := FromRequest(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Bearer header-token")
	tok, ok := FromRequest(r)
	require.True(t, ok)
	assert.Equal(t, "header-token", tok)

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
	tok, ok = FromRequest(r)
	require.True(t, ok)
	assert.Equal(t, "cookie-token", tok)

	bad := httptest.NewRequest("GET", "/", nil)
	bad.Header.Set("Authorization", "Basic abc")
	_, ok = FromRequest(bad)
	assert.False(t, ok)
}
