package store

import (
	"context"
	"time"
)

// QRCode is one generated code document. The image itself lives in the
// external object store; only its URL and key are persisted here.
type QRCode struct {
	ID            string     `bson:"_id"`
	UserID        string     `bson:"userId"`
	Title         string     `bson:"title"`
	Content       string     `bson:"content"`
	Slug          string     `bson:"slug"`
	Color         string     `bson:"color,omitempty"`
	ScanCount     int64      `bson:"scanCount"`
	ImageURL      string     `bson:"imageUrl"`
	DownloadURL   string     `bson:"downloadUrl"`
	ImageKey      string     `bson:"imageKey,omitempty"`
	LastScannedAt *time.Time `bson:"lastScannedAt,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt"`
}

// QRRepository is the document-store contract for generated codes.
type QRRepository interface {
	Insert(ctx context.Context, qr *QRCode) error
	// FindByID returns ErrNotFound when id does not exist.
	FindByID(ctx context.Context, id string) (*QRCode, error)
	// FindBySlug returns ErrNotFound when slug does not exist.
	FindBySlug(ctx context.Context, slug string) (*QRCode, error)
	// ListByUser returns the user's codes, newest first.
	ListByUser(ctx context.Context, userID string) ([]QRCode, error)
	Update(ctx context.Context, qr *QRCode) error
	// Delete removes the document by id; ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
	// IncrementScan atomically bumps scanCount and stamps lastScannedAt
	// for the code behind slug, returning the updated document.
	IncrementScan(ctx context.Context, slug string, at time.Time) (*QRCode, error)
}
