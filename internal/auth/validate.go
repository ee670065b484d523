package auth

import (
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Substring matches against the email's username part.
var restrictedKeywords = []string{
	"admin", "administrator", "root", "superuser", "sysadmin", "system",
	"support", "webmaster", "moderator", "manager", "staff", "security",
	"billing", "finance", "legal", "service", "sales", "owner", "account",
	"newsletter", "notifications", "alerts", "announcement",
}

// Exact matches against the email's username part.
var restrictedExact = map[string]struct{}{
	"user": {}, "test": {}, "guest": {}, "info": {}, "contact": {},
	"help": {}, "dev": {}, "developer": {}, "team": {}, "public": {},
	"press": {}, "news": {}, "updates": {}, "it": {},
	"ceo": {}, "cfo": {}, "coo": {}, "cto": {},
}

var numberedUserPattern = regexp.MustCompile(`^user\d+$`)

// normalizeEmail lowercases and trims the address; all storage and lookup
// goes through this so one mailbox maps to one account.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail checks format and the restricted-username blocklist.
func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}

	username, _, _ := strings.Cut(email, "@")
	if _, ok := restrictedExact[username]; ok {
		return ErrEmailRestricted
	}
	if numberedUserPattern.MatchString(username) {
		return ErrEmailRestricted
	}
	for _, keyword := range restrictedKeywords {
		if strings.Contains(username, keyword) {
			return ErrEmailRestricted
		}
	}
	return nil
}

// validatePassword enforces the registration strength policy: minimum
// length plus at least one uppercase letter, lowercase letter, digit, and
// symbol.
func validatePassword(pw string, minLength int) error {
	if len(pw) < minLength {
		return ErrWeakPassword
	}

	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}
