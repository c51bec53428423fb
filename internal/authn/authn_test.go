package authn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtyshyk/telegram-rag/internal/errors"
)

func testService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	return New(Config{
		AppUser: "alice", AppUserHashBcrypt: hash, SessionSecret: "s3cret",
		SessionTTL: time.Hour, LoginRateMaxAttempts: 2, LoginRateWindow: time.Minute,
	})
}

func TestLogin_SucceedsAndIssuesVerifiableSession(t *testing.T) {
	s := testService(t)
	now := time.Now()
	token, err := s.Login("1.2.3.4", "alice", "correct horse", now)
	require.NoError(t, err)

	username, err := s.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestLogin_WrongPasswordFails(t *testing.T) {
	s := testService(t)
	_, err := s.Login("1.2.3.4", "alice", "wrong", time.Now())
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errors.KindAuthFailure, appErr.Kind)
}

func TestLogin_RateLimitedAfterMaxAttempts(t *testing.T) {
	s := testService(t)
	now := time.Now()
	_, _ = s.Login("1.2.3.4", "alice", "wrong", now)
	_, _ = s.Login("1.2.3.4", "alice", "wrong", now)
	_, err := s.Login("1.2.3.4", "alice", "wrong", now)
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errors.KindRateLimited, appErr.Kind)
}

func TestVerifySession_RejectsGarbage(t *testing.T) {
	s := testService(t)
	_, err := s.VerifySession("not-a-token")
	require.Error(t, err)
}
