// Package control holds the continuous controllers that run while a tool
// is active: zoom/pan, swipe detection, slide deck, brush and click.
package control

import (
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/features"
)

// Direction is a swipe direction in image coordinates.
type Direction string

const (
	NoDirection Direction = ""
	Left        Direction = "LEFT"
	Right       Direction = "RIGHT"
	Up          Direction = "UP"
	Down        Direction = "DOWN"
)

// SwipeSample is one tick of swipe input.
type SwipeSample struct {
	// Position is the palm center in pixels.
	Position features.Vec2
	// Normalized is Position divided by the hand scale.
	Normalized features.Vec2
	HandScale  float64
	// Gated reports whether the swipe gate pattern is held.
	Gated bool
	Time  time.Time
}

// SampleOf builds a sample from the features of the tick at now.
func SampleOf(f features.Features, gated bool, now time.Time) SwipeSample {
	return SwipeSample{
		Position:   f.Palm,
		Normalized: f.NormalizeVec(f.Palm),
		HandScale:  f.HandScale,
		Gated:      gated,
		Time:       now,
	}
}

// SwipeDetector turns a stream of samples into discrete swipe events.
// Implementations drop all history on a sample that is not gated.
type SwipeDetector interface {
	Update(s SwipeSample) (Direction, bool)
	Reset()
}

// SwipeMode selects a SwipeDetector implementation.
type SwipeMode string

const (
	ModeDisplacement SwipeMode = "displacement"
	ModeConsensus    SwipeMode = "consensus"
)

// SwipeConfig configures both swipe strategies.
type SwipeConfig struct {
	Mode SwipeMode `yaml:"mode" json:"mode" env:"MODE"`
	// Gate is the finger pattern that enables swipe detection.
	Gate     features.Pattern `yaml:"gate" json:"gate" env:"GATE"`
	Cooldown time.Duration    `yaml:"cooldown" json:"cooldown" env:"COOLDOWN"`

	// Threshold is the displacement needed to fire, in hand-scale units when
	// Relative is set and in pixels otherwise.
	Threshold float64 `yaml:"threshold" json:"threshold" env:"THRESHOLD"`
	Relative  bool    `yaml:"relative" json:"relative" env:"RELATIVE"`

	BufferLen          int     `yaml:"buffer_len" json:"buffer_len" env:"BUFFER_LEN"`
	Fraction           float64 `yaml:"fraction" json:"fraction" env:"FRACTION"`
	MinStep            float64 `yaml:"min_step" json:"min_step" env:"MIN_STEP"`
	ConsensusThreshold float64 `yaml:"consensus_threshold" json:"consensus_threshold" env:"CONSENSUS_THRESHOLD"`
}

// DefaultSwipeConfig returns displacement mode gated on four fingers.
func DefaultSwipeConfig() SwipeConfig {
	return SwipeConfig{
		Mode:               ModeDisplacement,
		Gate:               features.FourFingers,
		Cooldown:           600 * time.Millisecond,
		Threshold:          1.5,
		Relative:           true,
		BufferLen:          8,
		Fraction:           0.7,
		MinStep:            0.05,
		ConsensusThreshold: 1.5,
	}
}

// Validate reports configuration values no detector can run with.
func (c SwipeConfig) Validate() error {
	switch c.Mode {
	case ModeDisplacement:
		if c.Threshold <= 0 {
			return fmt.Errorf("swipe threshold must be positive, got %v", c.Threshold)
		}
	case ModeConsensus:
		if c.BufferLen < 2 {
			return fmt.Errorf("swipe buffer_len must be at least 2, got %d", c.BufferLen)
		}
		if c.Fraction <= 0 || c.Fraction > 1 {
			return fmt.Errorf("swipe fraction must be in (0, 1], got %v", c.Fraction)
		}
		if c.ConsensusThreshold <= 0 {
			return fmt.Errorf("swipe consensus_threshold must be positive, got %v", c.ConsensusThreshold)
		}
	default:
		return fmt.Errorf("unknown swipe mode %q", c.Mode)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("swipe cooldown must not be negative, got %v", c.Cooldown)
	}
	return nil
}

// NewSwipeDetector builds the detector selected by cfg.Mode.
func NewSwipeDetector(cfg SwipeConfig) (SwipeDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == ModeConsensus {
		return NewConsensus(cfg), nil
	}
	return NewDisplacement(cfg), nil
}

// axisDirection maps a signed displacement on one axis to a direction.
func axisDirection(horizontal bool, d float64) Direction {
	switch {
	case horizontal && d > 0:
		return Right
	case horizontal:
		return Left
	case d > 0:
		return Down
	default:
		return Up
	}
}

// cooldown tracks the time of the last fired event.
type cooldown struct {
	window time.Duration
	last   time.Time
	fired  bool
}

func (c *cooldown) active(now time.Time) bool {
	return c.fired && now.Sub(c.last) < c.window
}

func (c *cooldown) start(now time.Time) {
	c.last = now
	c.fired = true
}
