package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	l := New(limit, window)
	l.now = c.now
	return l, c
}

func TestAllowExhaustsAndRefills(t *testing.T) {
	l, c := newTestLimiter(3, 3*time.Second)

	for range 3 {
		assert.True(t, l.Allow("a"))
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys have independent buckets")

	assert.Equal(t, time.Second, l.RetryAfter("a"))
	c.t = c.t.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	c.t = c.t.Add(time.Hour)
	for range 3 {
		assert.True(t, l.Allow("a"), "refill is capped at the limit")
	}
	assert.False(t, l.Allow("a"))
}

func TestZeroLimitRejects(t *testing.T) {
	l, _ := newTestLimiter(0, time.Second)
	assert.False(t, l.Allow("a"))
}

func TestResetAndPrune(t *testing.T) {
	l, c := newTestLimiter(1, time.Minute)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	l.Reset("a")
	assert.True(t, l.Allow("a"))

	assert.True(t, l.Allow("b"))
	c.t = c.t.Add(90 * time.Second)
	assert.True(t, l.Allow("b"))
	c.t = c.t.Add(60 * time.Second)
	l.Prune()
	assert.Equal(t, 1, l.Len(), "a has been idle for two windows, b has not")
}
