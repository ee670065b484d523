package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", normalizeEmail("  Alice@Example.COM "))
}

func TestValidateEmailFormat(t *testing.T) {
	for _, bad := range []string{"", "plain", "a@b", "a b@example.com", "@example.com", "alice@"} {
		assert.ErrorIs(t, validateEmail(bad), ErrEmailInvalid, "email %q", bad)
	}
	assert.NoError(t, validateEmail("alice@example.com"))
}

func TestValidateEmailRestrictedUsernames(t *testing.T) {
	restricted := []string{
		"admin@example.com",       // keyword, exact
		"site-admin@example.com",  // keyword, substring
		"billing99@example.com",   // keyword, substring
		"user@example.com",        // exact-only word
		"user42@example.com",      // numbered variant
		"cto@example.com",         // exact-only word
		"supporters@example.com",  // contains "support"
	}
	for _, email := range restricted {
		assert.ErrorIs(t, validateEmail(email), ErrEmailRestricted, "email %q", email)
	}

	// Exact-only words are fine as part of a longer username.
	allowed := []string{"username@example.com", "devon@example.com", "alice@example.com"}
	for _, email := range allowed {
		assert.NoError(t, validateEmail(email), "email %q", email)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, validatePassword("Str0ng!pw", 8))

	weak := []string{
		"Sh0r!t",      // too short
		"str0ng!pass", // no upper
		"STR0NG!PASS", // no lower
		"Strong!pass", // no digit
		"Str0ngpass1", // no symbol
	}
	for _, pw := range weak {
		assert.ErrorIs(t, validatePassword(pw, 8), ErrWeakPassword, "password %q", pw)
	}
}
