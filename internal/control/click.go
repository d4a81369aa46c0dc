package control

import (
	"time"

	"github.com/ayusman/mudra/internal/features"
)

// ClickConfig tunes the pinch click.
type ClickConfig struct {
	// Ratio is the pinch distance, in hand-scale units, below which the
	// pinch counts as pressed.
	Ratio    float64       `yaml:"ratio" json:"ratio" env:"RATIO"`
	Debounce time.Duration `yaml:"debounce" json:"debounce" env:"DEBOUNCE"`
}

// DefaultClickConfig returns a 0.35 ratio and a 0.5s debounce.
func DefaultClickConfig() ClickConfig {
	return ClickConfig{Ratio: 0.35, Debounce: 500 * time.Millisecond}
}

// ClickEvent is a debounced press at the index tip.
type ClickEvent struct {
	Point features.Vec2 `json:"point"`
}

// Click emits presses while the pinch is closed, at most once per debounce
// window.
type Click struct {
	cfg  ClickConfig
	cool cooldown
}

// NewClick creates a click controller.
func NewClick(cfg ClickConfig) *Click {
	return &Click{cfg: cfg, cool: cooldown{window: cfg.Debounce}}
}

// Update returns a click when the pinch is closed and the debounce elapsed.
func (c *Click) Update(f features.Features, now time.Time) (ClickEvent, bool) {
	if f.Degenerate() || f.PinchDistance >= c.cfg.Ratio*f.HandScale {
		return ClickEvent{}, false
	}
	if c.cool.active(now) {
		return ClickEvent{}, false
	}
	c.cool.start(now)
	return ClickEvent{Point: f.IndexTip}, true
}
