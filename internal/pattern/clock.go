package pattern

import "time"

// Clock is a monotonic millisecond clock that wraps around to zero after
// math.MaxUint32 milliseconds (about 49.7 days).
type Clock interface {
	Millis() uint32
}

// SystemClock is a Clock counting milliseconds since it was created.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock starting at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Millis implements Clock. The conversion truncates to the low 32 bits, which
// is what makes the clock wrap.
func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// Gate is the per-pattern rate limiter. Elapsed time is the unsigned 32-bit
// difference between now and the last update, which stays correct across a
// clock wraparound as long as updates are less than one wrap period apart.
type Gate struct {
	last   uint32
	primed bool
}

// Allow returns true and records now as the last update if at least delay
// milliseconds have passed since the previous update. The first call always
// returns true.
func (g *Gate) Allow(now, delay uint32) bool {
	if g.primed && now-g.last < delay {
		return false
	}
	g.last = now
	g.primed = true
	return true
}

// Reset forgets the last update so the next call to Allow passes.
func (g *Gate) Reset() {
	*g = Gate{}
}
