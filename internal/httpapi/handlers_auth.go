package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qrforge/qrforge/internal/token"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	u, err := s.engine.Register(c.Request.Context(), req.Email, req.Password, deviceInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "OTP sent to your email", toIdentityPayload(u))
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (s *Server) handleVerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	u, tok, err := s.engine.VerifyEmail(c.Request.Context(), req.Email, req.OTP, deviceInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}
	s.setSessionCookie(c, tok)
	respond(c, http.StatusCreated, "email verified", toSessionPayload(u, tok))
}

type emailRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResendOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	u, err := s.engine.ResendOTP(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "OTP sent to your email", toIdentityPayload(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	u, tok, err := s.engine.Login(c.Request.Context(), req.Email, req.Password, deviceInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}
	s.setSessionCookie(c, tok)
	respond(c, http.StatusOK, "login successful", toSessionPayload(u, tok))
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	u, err := s.engine.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "password reset OTP sent to your email", toIdentityPayload(u))
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	u, err := s.engine.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword, deviceInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "password reset successful", toIdentityPayload(u))
}

type federatedRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleGoogleSignIn(c *gin.Context) {
	var req federatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	u, tok, err := s.engine.FederatedSignIn(c.Request.Context(), req.Token, deviceInfo(c))
	if err != nil {
		respondError(c, err)
		return
	}
	s.setSessionCookie(c, tok)
	respond(c, http.StatusOK, "login successful", toUserPayload(u))
}

func (s *Server) handleLogout(c *gin.Context) {
	// Tokens are stateless; logout just clears the client cookie.
	http.SetCookie(c.Writer, token.ClearCookie(s.secureCookies))
	respond(c, http.StatusOK, "logged out", nil)
}

func (s *Server) handleMe(c *gin.Context) {
	respond(c, http.StatusOK, "ok", toUserPayload(currentUser(c)))
}

func (s *Server) setSessionCookie(c *gin.Context, tok string) {
	http.SetCookie(c.Writer, token.SessionCookie(tok, s.sessionTTL, s.secureCookies))
}
