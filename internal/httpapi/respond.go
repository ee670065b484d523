// Package httpapi exposes the authentication and QR services over a JSON
// HTTP surface. Every response uses one envelope shape; domain errors map
// to statuses in one place so handlers stay thin.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qrforge/qrforge/internal/auth"
	"github.com/qrforge/qrforge/internal/qr"
	"github.com/qrforge/qrforge/internal/store"
)

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

// respondError maps a domain error to its status and writes the envelope.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, auth.ErrEmailInvalid),
		errors.Is(err, auth.ErrEmailRestricted),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrOTPNotIssued),
		errors.Is(err, auth.ErrOTPExpired),
		errors.Is(err, auth.ErrOTPInvalid),
		errors.Is(err, auth.ErrLocalEmail),
		errors.Is(err, qr.ErrTitleRequired),
		errors.Is(err, qr.ErrContentRequired),
		errors.Is(err, qr.ErrColorInvalid):
		status, message = http.StatusBadRequest, err.Error()

	case errors.Is(err, auth.ErrSessionInvalid),
		errors.Is(err, auth.ErrAccountUnverified),
		errors.Is(err, auth.ErrAssertionInvalid):
		status, message = http.StatusUnauthorized, err.Error()

	case errors.Is(err, qr.ErrNotOwned):
		status, message = http.StatusForbidden, err.Error()

	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, qr.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()

	case errors.Is(err, auth.ErrAlreadyRegistered),
		errors.Is(err, auth.ErrAlreadyVerified),
		errors.Is(err, auth.ErrFederatedEmail):
		status, message = http.StatusConflict, err.Error()

	case errors.Is(err, auth.ErrRateLimited):
		status, message = http.StatusTooManyRequests, err.Error()

	case errors.Is(err, auth.ErrMailDelivery),
		errors.Is(err, qr.ErrUploadFailed):
		status, message = http.StatusBadGateway, err.Error()

	case errors.Is(err, auth.ErrDependencyUnavailable):
		status, message = http.StatusServiceUnavailable, err.Error()
	}

	respond(c, status, message, nil)
}

type userPayload struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	IsVerified          bool       `json:"isVerified"`
	RegisteredViaGoogle bool       `json:"registeredViaGoogle"`
	GoogleName          string     `json:"googleName,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	VerifiedAt          *time.Time `json:"verifiedAt,omitempty"`
}

// identityPayload is the minimal success body for the flows that do not
// establish a session (register, resend, forgot, reset).
type identityPayload struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
}

func toIdentityPayload(u *store.User) identityPayload {
	return identityPayload{Email: u.Email, UserID: u.ID}
}

// sessionPayload is the success body for the flows that issue a session
// token (verify-email, login). The token also rides the cookie; the body
// copy serves non-cookie clients.
type sessionPayload struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

func toSessionPayload(u *store.User, token string) sessionPayload {
	return sessionPayload{Token: token, User: toUserPayload(u)}
}

func toUserPayload(u *store.User) userPayload {
	return userPayload{
		ID:                  u.ID,
		Email:               u.Email,
		IsVerified:          u.IsVerified,
		RegisteredViaGoogle: u.RegisteredViaGoogle,
		GoogleName:          u.GoogleName,
		CreatedAt:           u.CreatedAt,
		VerifiedAt:          u.VerifiedAt,
	}
}

type qrPayload struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Slug          string     `json:"slug"`
	Color         string     `json:"color,omitempty"`
	ScanCount     int64      `json:"scanCount"`
	ImageURL      string     `json:"imageUrl"`
	DownloadURL   string     `json:"downloadUrl"`
	LastScannedAt *time.Time `json:"lastScannedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func toQRPayload(code *store.QRCode) qrPayload {
	return qrPayload{
		ID:            code.ID,
		Title:         code.Title,
		Content:       code.Content,
		Slug:          code.Slug,
		Color:         code.Color,
		ScanCount:     code.ScanCount,
		ImageURL:      code.ImageURL,
		DownloadURL:   code.DownloadURL,
		LastScannedAt: code.LastScannedAt,
		CreatedAt:     code.CreatedAt,
		UpdatedAt:     code.UpdatedAt,
	}
}

func toQRPayloads(codes []store.QRCode) []qrPayload {
	out := make([]qrPayload, len(codes))
	for i := range codes {
		out[i] = toQRPayload(&codes[i])
	}
	return out
}
