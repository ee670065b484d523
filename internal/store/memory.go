package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryUserRepository is an in-memory UserRepository used by tests. It
// enforces the same email uniqueness the Mongo index provides.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]User // keyed by id
}

// NewMemoryUserRepository returns an empty in-memory repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]User)}
}

// FindByEmail implements UserRepository.
func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// FindByID implements UserRepository.
func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

// Insert implements UserRepository.
func (r *MemoryUserRepository) Insert(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	r.users[u.ID] = *cloneUser(*u)
	return nil
}

// Update implements UserRepository.
func (r *MemoryUserRepository) Update(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return ErrNotFound
	}
	r.users[u.ID] = *cloneUser(*u)
	return nil
}

// Delete removes an account. Only tests use this; the core never hard-deletes.
func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func cloneUser(u User) *User {
	out := u
	if u.OTP != nil {
		otp := *u.OTP
		out.OTP = &otp
	}
	if u.VerifiedAt != nil {
		at := *u.VerifiedAt
		out.VerifiedAt = &at
	}
	out.KnownDevices = append([]Device(nil), u.KnownDevices...)
	return &out
}

// MemoryQRRepository is an in-memory QRRepository used by tests.
type MemoryQRRepository struct {
	mu    sync.Mutex
	codes map[string]QRCode
}

// NewMemoryQRRepository returns an empty in-memory repository.
func NewMemoryQRRepository() *MemoryQRRepository {
	return &MemoryQRRepository{codes: make(map[string]QRCode)}
}

// Insert implements QRRepository.
func (r *MemoryQRRepository) Insert(_ context.Context, qr *QRCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.codes {
		if existing.Slug == qr.Slug {
			return ErrDuplicateSlug
		}
	}
	r.codes[qr.ID] = *cloneQR(*qr)
	return nil
}

// FindByID implements QRRepository.
func (r *MemoryQRRepository) FindByID(_ context.Context, id string) (*QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	qr, ok := r.codes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneQR(qr), nil
}

// FindBySlug implements QRRepository.
func (r *MemoryQRRepository) FindBySlug(_ context.Context, slug string) (*QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, qr := range r.codes {
		if qr.Slug == slug {
			return cloneQR(qr), nil
		}
	}
	return nil, ErrNotFound
}

// ListByUser implements QRRepository.
func (r *MemoryQRRepository) ListByUser(_ context.Context, userID string) ([]QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []QRCode
	for _, qr := range r.codes {
		if qr.UserID == userID {
			out = append(out, *cloneQR(qr))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update implements QRRepository.
func (r *MemoryQRRepository) Update(_ context.Context, qr *QRCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[qr.ID]; !ok {
		return ErrNotFound
	}
	r.codes[qr.ID] = *cloneQR(*qr)
	return nil
}

// Delete implements QRRepository.
func (r *MemoryQRRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[id]; !ok {
		return ErrNotFound
	}
	delete(r.codes, id)
	return nil
}

// IncrementScan implements QRRepository.
func (r *MemoryQRRepository) IncrementScan(_ context.Context, slug string, at time.Time) (*QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, qr := range r.codes {
		if qr.Slug == slug {
			qr.ScanCount++
			scanned := at
			qr.LastScannedAt = &scanned
			r.codes[id] = qr
			return cloneQR(qr), nil
		}
	}
	return nil, ErrNotFound
}

func cloneQR(qr QRCode) *QRCode {
	out := qr
	if qr.LastScannedAt != nil {
		at := *qr.LastScannedAt
		out.LastScannedAt = &at
	}
	return &out
}
