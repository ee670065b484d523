package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qrforge/qrforge/internal/auth"
	"github.com/qrforge/qrforge/internal/qr"
)

// Options configures the HTTP surface.
type Options struct {
	// SecureCookies marks session cookies Secure; on in production.
	SecureCookies bool
	// SessionTTL is the cookie lifetime, matching the token TTL.
	SessionTTL time.Duration
}

// Server binds the services to their routes.
type Server struct {
	engine        *auth.Engine
	qr            *qr.Service
	log           *zap.Logger
	secureCookies bool
	sessionTTL    time.Duration
}

// NewServer wires the handlers and returns the gin engine to serve.
func NewServer(engine *auth.Engine, qrSvc *qr.Service, log *zap.Logger, opts Options) (*Server, *gin.Engine) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		engine:        engine,
		qr:            qrSvc,
		log:           log,
		secureCookies: opts.SecureCookies,
		sessionTTL:    opts.SessionTTL,
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		authRoutes.POST("/register", s.handleRegister)
		authRoutes.POST("/verify-email", s.handleVerifyEmail)
		authRoutes.POST("/resend-otp", s.handleResendOTP)
		authRoutes.POST("/login", s.handleLogin)
		authRoutes.POST("/forgot-password", s.handleForgotPassword)
		authRoutes.POST("/reset-password", s.handleResetPassword)
		authRoutes.POST("/google", s.handleGoogleSignIn)
		authRoutes.POST("/logout", s.handleLogout)
		authRoutes.GET("/me", requireAuth(engine), s.handleMe)

		qrRoutes := api.Group("/qr", requireAuth(engine))
		qrRoutes.POST("", s.handleCreateQR)
		qrRoutes.GET("/history", s.handleQRHistory)
		qrRoutes.GET("/:idOrSlug", s.handleQRDetails)
		qrRoutes.PUT("/:idOrSlug", s.handleUpdateQR)
		qrRoutes.DELETE("/:idOrSlug", s.handleDeleteQR)
	}

	// Public scan target; no auth.
	router.GET("/qr/:slug", s.handleScan)

	return s, router
}
