package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rtyshyk/telegram-rag/internal/logger"
)

// authSkipPaths never go through the session-auth middleware.
var authSkipPaths = map[string]bool{
	"/healthz":    true,
	"/metrics":    true,
	"/auth/login": true,
}

// corsMiddleware builds the CORS layer from config: either a fixed UI
// origin or, in development, every origin.
func corsMiddleware(uiOrigin string, allowAll bool) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if allowAll {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false // browsers reject credentialed wildcard CORS
	} else {
		cfg.AllowOrigins = []string{uiOrigin}
	}
	return cors.New(cfg)
}

// correlationIDMiddleware assigns (or propagates) a per-request correlation
// ID, attaches it to the response and to the request context's logger.
func correlationIDMiddleware(c *gin.Context) {
	id := c.GetHeader("X-Correlation-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Writer.Header().Set("X-Correlation-ID", id)
	ctx := logger.WithCorrelationID(c.Request.Context(), id)
	c.Request = c.Request.WithContext(ctx)
	c.Set(correlationIDKey, id)
	c.Next()
}

// requestLoggingMiddleware logs one line per request after it completes,
// the way the teacher's handlers log start/success/failure around each
// operation, condensed to a single structured entry per request.
func requestLoggingMiddleware(c *gin.Context) {
	start := time.Now()
	c.Next()
	logger.Info(c.Request.Context(), "http_request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

const (
	correlationIDKey = "correlation_id"
	usernameKey      = "username"
)

// authMiddleware rejects requests without a valid rag_session cookie,
// skipping the paths in authSkipPaths.
func (s *AppState) authMiddleware(c *gin.Context) {
	if authSkipPaths[c.Request.URL.Path] {
		c.Next()
		return
	}

	cookie, err := c.Cookie(s.sessionCookieName)
	if err != nil || cookie == "" {
		c.AbortWithStatusJSON(401, gin.H{"ok": false, "error": "not authenticated"})
		return
	}
	username, err := s.Authn.VerifySession(cookie)
	if err != nil {
		c.AbortWithStatusJSON(401, gin.H{"ok": false, "error": "invalid or expired session"})
		return
	}
	c.Set(usernameKey, username)
	c.Next()
}
