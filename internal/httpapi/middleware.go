package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qrforge/qrforge/internal/auth"
	"github.com/qrforge/qrforge/internal/fingerprint"
	"github.com/qrforge/qrforge/internal/store"
	"github.com/qrforge/qrforge/internal/token"
)

const userContextKey = "httpapi.user"

// requireAuth resolves the session token from cookie or Authorization
// header and loads the account. It does nothing else; handlers that need
// more must fetch it themselves.
func requireAuth(engine *auth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := token.FromRequest(c.Request)
		u, err := engine.CurrentUser(c.Request.Context(), raw)
		if err != nil {
			respond(c, http.StatusUnauthorized, auth.ErrSessionInvalid.Error(), nil)
			c.Abort()
			return
		}
		c.Set(userContextKey, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) *store.User {
	u, _ := c.MustGet(userContextKey).(*store.User)
	return u
}

// deviceInfo assembles the per-request device identity for the auth flows.
func deviceInfo(c *gin.Context) auth.DeviceInfo {
	signals := fingerprint.FromRequest(c.Request)
	return auth.DeviceInfo{
		Fingerprint: fingerprint.Derive(signals),
		UserAgent:   signals.UserAgent,
		IP:          signals.IP,
	}
}

// requestLogger logs one line per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", fingerprint.ClientIP(c.Request)),
		)
	}
}
