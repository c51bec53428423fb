package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rtyshyk/telegram-rag/internal/errors"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleLogin verifies credentials and, on success, sets the rag_session
// cookie: HttpOnly, SameSite=Lax, Secure iff the server is behind TLS.
func (s *AppState) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}

	token, err := s.Authn.Login(c.ClientIP(), req.Username, req.Password, time.Now())
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			if appErr.Kind == errors.KindRateLimited {
				c.Header("Retry-After", formatSeconds(s.loginRateLimitWindow()))
			}
			c.JSON(appErr.HTTPStatus(), gin.H{"ok": false, "error": appErr.Code})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "login failed"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.sessionCookieName, token, int(s.Cfg.Auth.SessionTTL().Seconds()), "/", "", s.sessionSecure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *AppState) handleLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.sessionCookieName, "", -1, "/", "", s.sessionSecure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
