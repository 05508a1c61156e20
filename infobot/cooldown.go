package infobot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type cooldownKey struct {
	command string
	userID  string
}

// cooldownTracker enforces a per-user, per-command cooldown. Each
// key gets a limiter with a burst of one, refilling once per cooldown.
type cooldownTracker struct {
	mu       sync.Mutex
	limiters map[cooldownKey]*rate.Limiter
}

func newCooldownTracker() *cooldownTracker {
	return &cooldownTracker{limiters: map[cooldownKey]*rate.Limiter{}}
}

// reserve uses the user's next invocation of command, returning zero if
// they're allowed to run it now. Otherwise, nothing is consumed and the
// time until they can run it again is returned.
func (c *cooldownTracker) reserve(command, userID string, per time.Duration) time.Duration {
	return c.reserveAt(time.Now(), command, userID, per)
}

func (c *cooldownTracker) reserveAt(
	now time.Time,
	command string,
	userID string,
	per time.Duration,
) time.Duration {
	if per <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cooldownKey{command: command, userID: userID}
	limit := rate.Every(per)
	lim, ok := c.limiters[key]
	if !ok || lim.Limit() != limit {
		lim = rate.NewLimiter(limit, 1)
		c.limiters[key] = lim
	}

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return per
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return delay
	}
	return 0
}

// prune drops limiters which have fully refilled, returning the number
// removed
func (c *cooldownTracker) prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, lim := range c.limiters {
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(c.limiters, key)
			removed++
		}
	}
	return removed
}

func (c *cooldownTracker) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.limiters)
}
