package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/menu"
	"github.com/ayusman/mudra/internal/smooth"
)

// Config holds every tunable of the tick pipeline.
type Config struct {
	// Smoothing enables the One Euro landmark filters and track identity.
	// It is off by default.
	Smoothing bool
	Filter    smooth.Params
	// Grace is how long a track survives without observations.
	Grace time.Duration
	// Mode is the provider running mode. Image mode forces a zero grace.
	Mode        detector.RunningMode
	InitialTool menu.Tool

	Menu  menu.Config
	Zoom  control.ZoomConfig
	Swipe control.SwipeConfig
	Deck  control.DeckConfig
	Brush control.BrushConfig
	Click control.ClickConfig
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Smoothing:   false,
		Filter:      smooth.DefaultParams(),
		Grace:       200 * time.Millisecond,
		Mode:        detector.ModeVideo,
		InitialTool: menu.ToolPainter,
		Menu:        menu.DefaultConfig(),
		Zoom:        control.DefaultZoomConfig(),
		Swipe:       control.DefaultSwipeConfig(),
		Deck:        control.DefaultDeckConfig(),
		Brush:       control.DefaultBrushConfig(),
		Click:       control.DefaultClickConfig(),
	}
}

// TrackGrace returns the effective grace period.
func (c Config) TrackGrace() time.Duration {
	if c.Mode == detector.ModeImage {
		return 0
	}
	return c.Grace
}

// Validate reports every invalid value at once.
func (c Config) Validate() error {
	var errs []error
	if c.Smoothing && c.Filter.Frequency <= 0 {
		errs = append(errs, fmt.Errorf("smoothing frequency must be positive, got %v", c.Filter.Frequency))
	}
	if c.Smoothing && c.Filter.MinCutoff <= 0 {
		errs = append(errs, fmt.Errorf("smoothing min_cutoff must be positive, got %v", c.Filter.MinCutoff))
	}
	if c.Grace < 0 {
		errs = append(errs, fmt.Errorf("track grace must not be negative, got %v", c.Grace))
	}
	if c.Mode != detector.ModeVideo && c.Mode != detector.ModeImage {
		errs = append(errs, fmt.Errorf("unknown tracking mode %q", c.Mode))
	}
	if _, err := menu.ParseTool(string(c.InitialTool)); err != nil {
		errs = append(errs, fmt.Errorf("initial tool: %w", err))
	}
	if c.Menu.HoldDuration < 0 {
		errs = append(errs, fmt.Errorf("menu hold_duration must not be negative, got %v", c.Menu.HoldDuration))
	}
	if c.Menu.Deadzone < 0 {
		errs = append(errs, fmt.Errorf("menu deadzone must not be negative, got %v", c.Menu.Deadzone))
	}
	if err := c.Menu.Layout.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Zoom.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Swipe.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Deck.Slides < 0 {
		errs = append(errs, fmt.Errorf("deck slides must not be negative, got %d", c.Deck.Slides))
	}
	if c.Click.Ratio <= 0 {
		errs = append(errs, fmt.Errorf("click ratio must be positive, got %v", c.Click.Ratio))
	}
	return errors.Join(errs...)
}

// withDefaults fills unset gesture patterns.
func (c Config) withDefaults() Config {
	if c.Menu.Trigger.IsZero() {
		c.Menu.Trigger = features.Trigger
	}
	if c.Zoom.Gate.IsZero() {
		c.Zoom.Gate = features.PinchGate
	}
	if c.Swipe.Gate.IsZero() {
		c.Swipe.Gate = features.FourFingers
	}
	if c.Deck.Show.IsZero() {
		c.Deck.Show = features.Palm
	}
	if c.Deck.Hide.IsZero() {
		c.Deck.Hide = features.Closed
	}
	if c.Brush.Clear.IsZero() {
		c.Brush.Clear = features.ClearLayer
	}
	return c
}
