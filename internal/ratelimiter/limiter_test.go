package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// clock is a manually advanced time source.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTryAcquire_BurstThenRefill(t *testing.T) {
	c := &clock{t: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	l := New(60, 3, c.now) // one token per second, burst of three

	for i := 0; i < 3; i++ {
		assert.True(t, l.TryAcquire(), "burst token %d", i)
	}
	assert.False(t, l.TryAcquire(), "bucket must be empty after the burst")

	c.advance(time.Second)
	assert.True(t, l.TryAcquire(), "one token refills per second")
	assert.False(t, l.TryAcquire())
}

func TestTryAcquire_RefillCapsAtBurst(t *testing.T) {
	c := &clock{t: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	l := New(60, 2, c.now)

	c.advance(time.Hour)
	assert.True(t, l.TryAcquire())
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire(), "idle time must not accumulate beyond the burst")
}

func TestTryAcquire_PartialRefill(t *testing.T) {
	c := &clock{t: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	l := New(60, 1, c.now)

	assert.True(t, l.TryAcquire())
	c.advance(500 * time.Millisecond)
	assert.False(t, l.TryAcquire(), "half a token is not a token")
	c.advance(500 * time.Millisecond)
	assert.True(t, l.TryAcquire())
}

func TestPool_PerPlayerBuckets(t *testing.T) {
	c := &clock{t: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	p := NewPool(60, 1, c.now)

	assert.True(t, p.Allow("alice"))
	assert.False(t, p.Allow("alice"))
	// bob's bucket is independent of alice's
	assert.True(t, p.Allow("bob"))
	assert.False(t, p.Allow("bob"))

	c.advance(time.Second)
	assert.True(t, p.Allow("alice"))
	assert.True(t, p.Allow("bob"))
}
