package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowsUpToMaxThenRejects(t *testing.T) {
	l := New(2, time.Minute)
	now := time.Unix(1000, 0)
	assert.True(t, l.Allow("u1", now))
	assert.True(t, l.Allow("u1", now))
	assert.False(t, l.Allow("u1", now))
}

func TestLimiter_WindowExpiryFreesCapacity(t *testing.T) {
	l := New(1, time.Minute)
	now := time.Unix(1000, 0)
	assert.True(t, l.Allow("u1", now))
	assert.False(t, l.Allow("u1", now))
	assert.True(t, l.Allow("u1", now.Add(61*time.Second)))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(1, time.Minute)
	now := time.Unix(1000, 0)
	assert.True(t, l.Allow("u1", now))
	assert.True(t, l.Allow("u2", now))
}
