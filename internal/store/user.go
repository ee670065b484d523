// Package store defines the document models persisted by the service and
// the repository contracts the core consumes. The production implementation
// is MongoDB; an in-memory implementation backs the test suites.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no document matches the lookup.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateEmail is returned when an insert violates the unique
	// email index. This index, not the resolver's check-then-create, is
	// the actual race-safety mechanism for concurrent registration.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateSlug is returned when a QR insert collides on slug.
	ErrDuplicateSlug = errors.New("slug already in use")
)

// OTPPurpose tags the single in-flight OTP slot so a registration code can
// never satisfy a password reset and vice versa.
type OTPPurpose string

const (
	// OTPPurposeRegister marks a code issued during registration.
	OTPPurposeRegister OTPPurpose = "register"
	// OTPPurposeReset marks a code issued for a password reset.
	OTPPurposeReset OTPPurpose = "reset"
)

// OTPState is the hashed one-time code currently in flight for a user.
// The pair is always written and cleared together; a code is never valid
// without its expiry.
type OTPState struct {
	Purpose   OTPPurpose `bson:"purpose"`
	CodeHash  string     `bson:"codeHash"`
	ExpiresAt time.Time  `bson:"expiresAt"`
}

// Device is one sighting entry in a user's known-device list.
type Device struct {
	DeviceID  string    `bson:"deviceId"`
	UserAgent string    `bson:"userAgent"`
	IP        string    `bson:"ip"`
	LastUsed  time.Time `bson:"lastUsed"`
}

// maxKnownDevices caps the known-device list; the oldest sighting is
// evicted when a new device would exceed it.
const maxKnownDevices = 20

// User is one account document. An account is either local
// (RegisteredViaGoogle=false, password hash present) or federated
// (RegisteredViaGoogle=true, no password); the mode never switches for an
// email already bound to the other mode.
type User struct {
	ID                  string     `bson:"_id"`
	Email               string     `bson:"email"`
	PasswordHash        string     `bson:"passwordHash,omitempty"`
	IsVerified          bool       `bson:"isVerified"`
	VerifiedAt          *time.Time `bson:"verifiedAt,omitempty"`
	OTP                 *OTPState  `bson:"otp,omitempty"`
	RegisteredViaGoogle bool       `bson:"registeredViaGoogle"`
	GoogleID            string     `bson:"googleId,omitempty"`
	GoogleName          string     `bson:"googleName,omitempty"`
	KnownDevices        []Device   `bson:"knownDevices,omitempty"`
	CreatedAt           time.Time  `bson:"createdAt"`
	UpdatedAt           time.Time  `bson:"updatedAt"`
}

// DisplayName returns the best available human-readable name.
func (u *User) DisplayName() string {
	return u.GoogleName
}

// RecordDevice upserts a sighting into KnownDevices: a repeat fingerprint
// only refreshes LastUsed, a new one is appended. Returns true when the
// device had not been seen before. The list is capped; the stalest entry is
// evicted to make room.
func (u *User) RecordDevice(d Device) bool {
	for i := range u.KnownDevices {
		if u.KnownDevices[i].DeviceID == d.DeviceID {
			u.KnownDevices[i].LastUsed = d.LastUsed
			u.KnownDevices[i].IP = d.IP
			u.KnownDevices[i].UserAgent = d.UserAgent
			return false
		}
	}

	if len(u.KnownDevices) >= maxKnownDevices {
		oldest := 0
		for i := range u.KnownDevices {
			if u.KnownDevices[i].LastUsed.Before(u.KnownDevices[oldest].LastUsed) {
				oldest = i
			}
		}
		u.KnownDevices = append(u.KnownDevices[:oldest], u.KnownDevices[oldest+1:]...)
	}

	u.KnownDevices = append(u.KnownDevices, d)
	return true
}

// ClearOTP drops the in-flight code and its expiry together.
func (u *User) ClearOTP() {
	u.OTP = nil
}

// UserRepository is the document-store contract for accounts.
type UserRepository interface {
	// FindByEmail returns ErrNotFound when no account owns email.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByID returns ErrNotFound when the account no longer exists.
	FindByID(ctx context.Context, id string) (*User, error)
	// Insert persists a new account, returning ErrDuplicateEmail on a
	// unique-index violation.
	Insert(ctx context.Context, u *User) error
	// Update saves the full document of an existing account.
	Update(ctx context.Context, u *User) error
}
