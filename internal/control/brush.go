package control

import (
	"github.com/ayusman/mudra/internal/features"
)

// BrushStyle maps the normalized pinch to a stroke thickness:
// int(clamp((pinch-Offset)*Gain, Min, Max) * Factor).
type BrushStyle struct {
	Max    float64 `yaml:"max" json:"max"`
	Factor float64 `yaml:"factor" json:"factor"`
}

// BrushConfig tunes both painter layers.
type BrushConfig struct {
	Offset      float64          `yaml:"offset" json:"offset" env:"OFFSET"`
	Gain        float64          `yaml:"gain" json:"gain" env:"GAIN"`
	Min         float64          `yaml:"min" json:"min" env:"MIN"`
	Initial     int              `yaml:"initial" json:"initial" env:"INITIAL"`
	Clear       features.Pattern `yaml:"clear" json:"clear" env:"CLEAR"`
	Painter     BrushStyle       `yaml:"painter" json:"painter"`
	Highlighter BrushStyle       `yaml:"highlighter" json:"highlighter"`
}

// DefaultBrushConfig returns the painter and highlighter curves.
func DefaultBrushConfig() BrushConfig {
	return BrushConfig{
		Offset:      0.05,
		Gain:        150,
		Min:         2,
		Initial:     10,
		Clear:       features.ClearLayer,
		Painter:     BrushStyle{Max: 100, Factor: 0.2},
		Highlighter: BrushStyle{Max: 80, Factor: 0.5},
	}
}

// BrushState is the stroke intent for one tick.
type BrushState struct {
	Thickness int           `json:"thickness"`
	Sizing    bool          `json:"sizing"`
	Drawing   bool          `json:"drawing"`
	Point     features.Vec2 `json:"point"`
}

// Brush turns finger poses into stroke intents. The thickness is shared by
// both layers and persists between ticks.
type Brush struct {
	cfg       BrushConfig
	thickness int
}

// NewBrush creates a brush at the initial thickness.
func NewBrush(cfg BrushConfig) *Brush {
	return &Brush{cfg: cfg, thickness: cfg.Initial}
}

// Update applies one tick with the given style. A folded thumb enters
// sizing mode and the pinch sets the thickness; otherwise the thickness is
// locked and the brush draws while the index is up and the middle down.
func (b *Brush) Update(style BrushStyle, f features.Features) BrushState {
	st := BrushState{Point: f.IndexTip}
	if !f.Fingers[features.Thumb] {
		n := clamp((f.NormalizedPinch()-b.cfg.Offset)*b.cfg.Gain, b.cfg.Min, style.Max)
		b.thickness = int(n * style.Factor)
		st.Sizing = true
	} else {
		st.Drawing = f.Fingers[features.Index] && !f.Fingers[features.Middle]
	}
	st.Thickness = b.thickness
	return st
}

// Clears reports whether the finger vector asks to clear the layer.
func (b *Brush) Clears(f features.Fingers) bool {
	return b.cfg.Clear.Match(f)
}

// Thickness returns the current thickness.
func (b *Brush) Thickness() int {
	return b.thickness
}
