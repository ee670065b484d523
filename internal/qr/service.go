package qr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	slugify "github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/qrforge/qrforge/internal/store"
)

var (
	// ErrTitleRequired is returned when create or update lacks a title.
	ErrTitleRequired = errors.New("title is required")
	// ErrContentRequired is returned when create lacks target content.
	ErrContentRequired = errors.New("content is required")
	// ErrColorInvalid is returned for a malformed hex color.
	ErrColorInvalid = errors.New("invalid hex color")
	// ErrNotFound is returned when no code matches the id or slug.
	ErrNotFound = errors.New("qr code not found")
	// ErrNotOwned is returned when the code belongs to another user.
	ErrNotOwned = errors.New("qr code belongs to another user")
	// ErrRenderFailed is returned when image encoding fails.
	ErrRenderFailed = errors.New("could not render qr image")
	// ErrUploadFailed is returned when the image store rejects the upload.
	ErrUploadFailed = errors.New("could not store qr image")
)

// Config tunes the service.
type Config struct {
	// PublicBaseURL prefixes the scan URL encoded into each image.
	PublicBaseURL string
}

// Service owns the QR code lifecycle: creation with rendered and uploaded
// imagery, owner-scoped reads and writes, and the public scan counter.
type Service struct {
	config Config
	repo   store.QRRepository
	render Renderer
	images ImageStore
	log    *zap.Logger
	now    func() time.Time
}

// NewService validates collaborators and returns a ready Service.
func NewService(cfg Config, repo store.QRRepository, render Renderer, images ImageStore, log *zap.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("qr: repository is required")
	}
	if render == nil {
		return nil, errors.New("qr: renderer is required")
	}
	if images == nil {
		return nil, errors.New("qr: image store is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		config: cfg,
		repo:   repo,
		render: render,
		images: images,
		log:    log,
		now:    time.Now,
	}, nil
}

// CreateParams carries the user-supplied fields of a new code.
type CreateParams struct {
	Title   string
	Content string
	Color   string
}

// Create renders, uploads, and persists a new code for userID. The encoded
// target is the public scan URL, so every print of the image routes through
// the counter.
func (s *Service) Create(ctx context.Context, userID string, p CreateParams) (*store.QRCode, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)
	if p.Title == "" {
		return nil, ErrTitleRequired
	}
	if p.Content == "" {
		return nil, ErrContentRequired
	}

	id := uuid.NewString()
	codeSlug := slugify.Make(p.Title) + "-" + id[:8]
	target := strings.TrimSuffix(s.config.PublicBaseURL, "/") + "/qr/" + codeSlug

	png, err := s.render.Render(target, p.Color)
	if err != nil {
		if errors.Is(err, ErrColorInvalid) {
			return nil, ErrColorInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	key := "qr/" + id + ".png"
	url, err := s.images.Put(ctx, key, png, "image/png")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	now := s.now()
	code := &store.QRCode{
		ID:          id,
		UserID:      userID,
		Title:       p.Title,
		Content:     p.Content,
		Slug:        codeSlug,
		Color:       p.Color,
		ImageURL:    url,
		DownloadURL: url,
		ImageKey:    key,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, code); err != nil {
		return nil, fmt.Errorf("persisting qr code: %w", err)
	}

	s.log.Info("qr code created",
		zap.String("userId", userID),
		zap.String("qrId", id),
		zap.String("slug", codeSlug),
	)
	return code, nil
}

// History returns the caller's codes, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]store.QRCode, error) {
	codes, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing qr codes: %w", err)
	}
	return codes, nil
}

// Details fetches one code by id or slug and enforces ownership.
func (s *Service) Details(ctx context.Context, userID, idOrSlug string) (*store.QRCode, error) {
	return s.findOwned(ctx, userID, idOrSlug)
}

// UpdateParams carries the mutable fields; empty strings leave a field
// unchanged.
type UpdateParams struct {
	Title   string
	Content string
	Color   string
}

// Update edits an owned code. When the encoded target or color changes the
// image is re-rendered and re-uploaded under the same key so existing
// prints keep resolving.
func (s *Service) Update(ctx context.Context, userID, idOrSlug string, p UpdateParams) (*store.QRCode, error) {
	code, err := s.findOwned(ctx, userID, idOrSlug)
	if err != nil {
		return nil, err
	}

	if t := strings.TrimSpace(p.Title); t != "" {
		code.Title = t
	}
	if c := strings.TrimSpace(p.Content); c != "" {
		code.Content = c
	}

	rerender := p.Color != "" && p.Color != code.Color
	if p.Color != "" {
		code.Color = p.Color
	}
	if rerender {
		target := strings.TrimSuffix(s.config.PublicBaseURL, "/") + "/qr/" + code.Slug
		png, err := s.render.Render(target, code.Color)
		if err != nil {
			if errors.Is(err, ErrColorInvalid) {
				return nil, ErrColorInvalid
			}
			return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
		}
		url, err := s.images.Put(ctx, code.ImageKey, png, "image/png")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		code.ImageURL = url
		code.DownloadURL = url
	}

	code.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, code); err != nil {
		return nil, fmt.Errorf("persisting qr code: %w", err)
	}
	return code, nil
}

// Delete removes an owned code. The stored image is deleted best-effort;
// a failed object delete is logged, the document still goes away.
func (s *Service) Delete(ctx context.Context, userID, idOrSlug string) error {
	code, err := s.findOwned(ctx, userID, idOrSlug)
	if err != nil {
		return err
	}

	if code.ImageKey != "" {
		if err := s.images.Delete(ctx, code.ImageKey); err != nil {
			s.log.Warn("deleting qr image failed",
				zap.String("qrId", code.ID),
				zap.String("imageKey", code.ImageKey),
				zap.Error(err),
			)
		}
	}

	if err := s.repo.Delete(ctx, code.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting qr code: %w", err)
	}
	return nil
}

// Scan resolves a public scan: it atomically bumps the counter, stamps the
// scan time, and returns the code so the caller can redirect to its
// content. No authentication.
func (s *Service) Scan(ctx context.Context, slug string) (*store.QRCode, error) {
	code, err := s.repo.IncrementScan(ctx, slug, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("recording scan: %w", err)
	}
	return code, nil
}

func (s *Service) findOwned(ctx context.Context, userID, idOrSlug string) (*store.QRCode, error) {
	code, err := s.repo.FindByID(ctx, idOrSlug)
	if errors.Is(err, store.ErrNotFound) {
		code, err = s.repo.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up qr code: %w", err)
	}
	if code.UserID != userID {
		return nil, ErrNotOwned
	}
	return code, nil
}
