package control

import (
	"math"

	"github.com/ayusman/mudra/internal/features"
)

// Displacement fires when the palm moves far enough from where the gesture
// started along one axis.
type Displacement struct {
	threshold float64
	relative  bool
	cool      cooldown

	start    features.Vec2
	hasStart bool
}

// NewDisplacement creates a displacement detector.
func NewDisplacement(cfg SwipeConfig) *Displacement {
	return &Displacement{
		threshold: cfg.Threshold,
		relative:  cfg.Relative,
		cool:      cooldown{window: cfg.Cooldown},
	}
}

// Update implements SwipeDetector. The start position is dropped while the
// gate is not held and while cooling down.
func (d *Displacement) Update(s SwipeSample) (Direction, bool) {
	if !s.Gated || d.cool.active(s.Time) {
		d.hasStart = false
		return NoDirection, false
	}
	if !d.hasStart {
		d.start = s.Position
		d.hasStart = true
		return NoDirection, false
	}

	delta := s.Position.Sub(d.start)
	if d.relative && s.HandScale >= features.MinHandScale {
		delta = delta.Scale(1 / s.HandScale)
	}

	ax, ay := math.Abs(delta.X), math.Abs(delta.Y)
	if ax <= d.threshold && ay <= d.threshold {
		return NoDirection, false
	}

	dir := axisDirection(false, delta.Y)
	if ax >= ay {
		dir = axisDirection(true, delta.X)
	}
	d.cool.start(s.Time)
	d.hasStart = false
	return dir, true
}

// Reset implements SwipeDetector.
func (d *Displacement) Reset() {
	d.hasStart = false
}
