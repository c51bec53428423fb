// Package authn implements the single-user session login used by the HTTP
// surface: bcrypt password check, JWT session issuance/verification and
// login-attempt rate limiting.
package authn

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rtyshyk/telegram-rag/internal/errors"
	"github.com/rtyshyk/telegram-rag/internal/ratelimit"
)

// Config holds the credentials and session settings from internal/config.Auth.
type Config struct {
	AppUser              string
	AppUserHashBcrypt    string
	SessionSecret        string
	SessionTTL           time.Duration
	LoginRateMaxAttempts int
	LoginRateWindow      time.Duration
}

// Service issues and verifies session tokens and throttles login attempts.
type Service struct {
	cfg          Config
	loginLimiter *ratelimit.Limiter
}

// New builds a Service from Config.
func New(cfg Config) *Service {
	return &Service{
		cfg:          cfg,
		loginLimiter: ratelimit.New(cfg.LoginRateMaxAttempts, cfg.LoginRateWindow),
	}
}

// HashPassword bcrypt-hashes a plaintext password for storage in config.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Permanent("password_hash_failed", "failed to hash password", err)
	}
	return string(hash), nil
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Login verifies username/password against configuration, rate-limited per
// identityKey (typically the client IP), and issues a session token.
func (s *Service) Login(identityKey, username, password string, now time.Time) (string, error) {
	if !s.loginLimiter.Allow(identityKey, now) {
		return "", errors.RateLimited("too many login attempts", s.cfg.LoginRateWindow)
	}

	if username != s.cfg.AppUser {
		return "", errors.AuthFailure("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AppUserHashBcrypt), []byte(password)); err != nil {
		return "", errors.AuthFailure("invalid credentials")
	}

	claims := sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return "", errors.Permanent("session_sign_failed", "failed to sign session token", err)
	}
	return signed, nil
}

// VerifySession parses and validates a session token, returning the
// authenticated username.
func (s *Service) VerifySession(tokenString string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SessionSecret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.AuthFailure("invalid or expired session")
	}
	return claims.Username, nil
}
