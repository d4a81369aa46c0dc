package control

import (
	"fmt"

	"github.com/ayusman/mudra/internal/features"
)

// ZoomConfig tunes pinch zoom and pan.
type ZoomConfig struct {
	Gate             features.Pattern `yaml:"gate" json:"gate" env:"GATE"`
	ScaleSensitivity float64          `yaml:"scale_sensitivity" json:"scale_sensitivity" env:"SCALE_SENSITIVITY"`
	MoveSensitivity  float64          `yaml:"move_sensitivity" json:"move_sensitivity" env:"MOVE_SENSITIVITY"`
	MinScale         float64          `yaml:"min_scale" json:"min_scale" env:"MIN_SCALE"`
	MaxScale         float64          `yaml:"max_scale" json:"max_scale" env:"MAX_SCALE"`
	// Adaptive measures the pinch in hand-scale units times AdaptiveGain,
	// so zoom speed does not depend on the distance to the camera.
	Adaptive     bool    `yaml:"adaptive" json:"adaptive" env:"ADAPTIVE"`
	AdaptiveGain float64 `yaml:"adaptive_gain" json:"adaptive_gain" env:"ADAPTIVE_GAIN"`
}

// DefaultZoomConfig returns the pinch gate with 0.005 scale and 1.0 move
// sensitivity, clamped to [0.1, 10].
func DefaultZoomConfig() ZoomConfig {
	return ZoomConfig{
		Gate:             features.PinchGate,
		ScaleSensitivity: 0.005,
		MoveSensitivity:  1.0,
		MinScale:         0.1,
		MaxScale:         10,
		AdaptiveGain:     150,
	}
}

// Validate checks the scale bounds.
func (c ZoomConfig) Validate() error {
	if c.MinScale <= 0 || c.MaxScale < c.MinScale {
		return fmt.Errorf("zoom scale bounds [%v, %v] are invalid", c.MinScale, c.MaxScale)
	}
	return nil
}

// ZoomState is the scale and offset applied to the presented content.
type ZoomState struct {
	Scale  float64       `json:"scale"`
	Offset features.Vec2 `json:"offset"`
	// Active is set while the pinch gate is held.
	Active bool `json:"active"`
}

// Zoom accumulates scale and offset from pinch distance and center deltas.
type Zoom struct {
	cfg ZoomConfig

	scale  float64
	offset features.Vec2

	lastDist   float64
	lastCenter features.Vec2
	hasLast    bool
}

// NewZoom creates a controller at scale 1 and zero offset.
func NewZoom(cfg ZoomConfig) *Zoom {
	return &Zoom{cfg: cfg, scale: 1}
}

// Update applies one tick. Deltas are measured against the previous gated
// tick; the first gated tick only records the reference.
func (z *Zoom) Update(f features.Features, gated bool) ZoomState {
	if !gated {
		z.Release()
		return z.State()
	}

	dist := f.PinchDistance
	if z.cfg.Adaptive {
		dist = f.NormalizedPinch() * z.cfg.AdaptiveGain
	}

	if z.hasLast {
		z.scale = clamp(z.scale+(dist-z.lastDist)*z.cfg.ScaleSensitivity, z.cfg.MinScale, z.cfg.MaxScale)
		z.offset = z.offset.Add(f.PinchCenter.Sub(z.lastCenter).Scale(z.cfg.MoveSensitivity))
	}
	z.lastDist = dist
	z.lastCenter = f.PinchCenter
	z.hasLast = true

	st := z.State()
	st.Active = true
	return st
}

// Release forgets the reference pinch. Scale and offset are kept.
func (z *Zoom) Release() {
	z.hasLast = false
	z.lastDist = 0
	z.lastCenter = features.Vec2{}
}

// State returns the current scale and offset.
func (z *Zoom) State() ZoomState {
	return ZoomState{Scale: z.scale, Offset: z.offset}
}

// Reset returns to scale 1 and zero offset.
func (z *Zoom) Reset() {
	z.Release()
	z.scale = 1
	z.offset = features.Vec2{}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
