package control

import (
	"math"

	"github.com/ayusman/mudra/internal/features"
)

// ring is a fixed-capacity buffer that overwrites its oldest entry.
type ring struct {
	buf   []features.Vec2
	head  int
	count int
}

func newRing(n int) *ring {
	return &ring{buf: make([]features.Vec2, n)}
}

func (r *ring) push(v features.Vec2) {
	r.buf[(r.head+r.count)%len(r.buf)] = v
	if r.count < len(r.buf) {
		r.count++
		return
	}
	r.head = (r.head + 1) % len(r.buf)
}

// at returns the i-th oldest entry.
func (r *ring) at(i int) features.Vec2 {
	return r.buf[(r.head+i)%len(r.buf)]
}

func (r *ring) full() bool { return r.count == len(r.buf) }

func (r *ring) len() int { return r.count }

func (r *ring) clear() {
	r.head, r.count = 0, 0
}

// Consensus fires only when most of the recent per-tick steps agree on a
// direction. A single noisy frame cannot trigger it.
type Consensus struct {
	fraction  float64
	minStep   float64
	threshold float64
	cool      cooldown
	history   *ring
}

// NewConsensus creates a consensus detector over cfg.BufferLen positions.
func NewConsensus(cfg SwipeConfig) *Consensus {
	return &Consensus{
		fraction:  cfg.Fraction,
		minStep:   cfg.MinStep,
		threshold: cfg.ConsensusThreshold,
		cool:      cooldown{window: cfg.Cooldown},
		history:   newRing(cfg.BufferLen),
	}
}

// Update implements SwipeDetector.
func (c *Consensus) Update(s SwipeSample) (Direction, bool) {
	if !s.Gated {
		c.history.clear()
		return NoDirection, false
	}
	if c.cool.active(s.Time) {
		return NoDirection, false
	}

	c.history.push(s.Normalized)
	if !c.history.full() {
		return NoDirection, false
	}

	hx, okX := c.vote(func(v features.Vec2) float64 { return v.X })
	hy, okY := c.vote(func(v features.Vec2) float64 { return v.Y })

	var dir Direction
	switch {
	case okX && (!okY || math.Abs(hx) >= math.Abs(hy)):
		dir = axisDirection(true, hx)
	case okY:
		dir = axisDirection(false, hy)
	default:
		return NoDirection, false
	}

	c.history.clear()
	c.cool.start(s.Time)
	return dir, true
}

// vote computes the steps between consecutive positions on one axis and
// returns the signed sum of the majority steps when they pass the fraction
// and magnitude tests.
func (c *Consensus) vote(axis func(features.Vec2) float64) (float64, bool) {
	var pos, neg, sumPos, sumNeg float64
	for i := 1; i < c.history.len(); i++ {
		d := axis(c.history.at(i)) - axis(c.history.at(i-1))
		switch {
		case math.Abs(d) <= c.minStep:
		case d > 0:
			pos++
			sumPos += d
		default:
			neg++
			sumNeg += d
		}
	}

	total := pos + neg
	if total == 0 {
		return 0, false
	}
	if pos >= neg {
		return sumPos, pos/total >= c.fraction && sumPos > c.threshold
	}
	return sumNeg, neg/total >= c.fraction && -sumNeg > c.threshold
}

// Reset implements SwipeDetector.
func (c *Consensus) Reset() {
	c.history.clear()
}

// Len returns the number of buffered positions.
func (c *Consensus) Len() int {
	return c.history.len()
}
