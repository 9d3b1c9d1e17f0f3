package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(l *Limiter, start time.Time) *time.Time {
	now := start
	l.now = func() time.Time { return now }
	return &now
}

func TestAllowRefills(t *testing.T) {
	l := New(1, 2)
	now := fixedClock(l, time.Unix(1000, 0))

	for i := 0; i < 2; i++ {
		ok, _ := l.Allow("1.2.3.4")
		assert.True(t, ok, "request %d", i)
	}
	ok, wait := l.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	ok, _ = l.Allow("5.6.7.8")
	assert.True(t, ok, "other clients have their own bucket")

	*now = now.Add(time.Second)
	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok, "one token refilled")
}

func TestRejectedRequestsDoNotBorrow(t *testing.T) {
	l := New(0.5, 1)
	now := fixedClock(l, time.Unix(1000, 0))

	ok, _ := l.Allow("k")
	assert.True(t, ok)
	for i := 0; i < 5; i++ {
		ok, wait := l.Allow("k")
		assert.False(t, ok)
		assert.Equal(t, 2*time.Second, wait)
	}
	*now = now.Add(2 * time.Second)
	ok, _ = l.Allow("k")
	assert.True(t, ok)
}

func TestDisabled(t *testing.T) {
	var nilLimiter *Limiter
	ok, _ := nilLimiter.Allow("k")
	assert.True(t, ok)

	l := New(1, 0)
	for i := 0; i < 10; i++ {
		ok, _ := l.Allow("k")
		assert.True(t, ok)
	}
}

func TestSweep(t *testing.T) {
	l := New(1, 1)
	now := fixedClock(l, time.Unix(1000, 0))

	l.Allow("a")
	*now = now.Add(5 * time.Minute)
	l.Allow("b")

	assert.Equal(t, 1, l.Sweep(time.Minute))
	assert.Equal(t, 1, l.Len())
}
