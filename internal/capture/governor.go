package capture

import "time"

// Governor switches between the active and idle tick rates. It goes active
// on the first motion and back to idle after a quiet timeout.
type Governor struct {
	active  int
	idle    int
	timeout time.Duration

	busy       bool
	lastMotion time.Time
}

// NewGovernor builds a governor from cfg. With IdleFPS zero it always
// reports the active rate.
func NewGovernor(cfg Config) *Governor {
	return &Governor{active: cfg.FPS, idle: cfg.IdleFPS, timeout: cfg.IdleTimeout}
}

// Gated reports whether the governor ever idles.
func (g *Governor) Gated() bool {
	return g.idle > 0
}

// Active reports whether the scene counts as moving.
func (g *Governor) Active() bool {
	return !g.Gated() || g.busy
}

// FPS returns the current tick rate.
func (g *Governor) FPS() int {
	if g.Active() {
		return g.active
	}
	return g.idle
}

// Observe records whether the frame at now moved. It returns true when the
// rate changed.
func (g *Governor) Observe(moved bool, now time.Time) bool {
	if !g.Gated() {
		return false
	}
	if moved {
		g.lastMotion = now
		if !g.busy {
			g.busy = true
			return true
		}
		return false
	}
	if g.busy && now.Sub(g.lastMotion) > g.timeout {
		g.busy = false
		return true
	}
	return false
}

// Interval returns the tick period at the current rate.
func (g *Governor) Interval() time.Duration {
	return time.Second / time.Duration(g.FPS())
}
