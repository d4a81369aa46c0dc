// Package menu implements the radial menu interaction state machine.
package menu

import (
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/features"
)

// State is the resting state of the machine.
type State int

const (
	Idle State = iota
	TriggerHolding
	MenuActive
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case TriggerHolding:
		return "trigger_holding"
	case MenuActive:
		return "menu_active"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// EventKind is the per-tick output of the machine.
type EventKind string

const (
	KindIdle       EventKind = "IDLE"
	KindTriggering EventKind = "TRIGGERING"
	KindMenuOpened EventKind = "MENU_OPENED"
	KindMenuActive EventKind = "MENU_ACTIVE"
	KindSelected   EventKind = "SELECTED"
)

// Event is emitted once per Update.
type Event struct {
	Kind EventKind `json:"kind"`
	// Progress is the fraction of the hold time elapsed while triggering.
	Progress float64 `json:"progress,omitempty"`
	// Anchor is the latched menu center, set while the menu is open.
	Anchor *features.Vec2 `json:"anchor,omitempty"`
	// Angle and Distance locate the index tip relative to the anchor.
	Angle    float64 `json:"angle,omitempty"`
	Distance float64 `json:"distance,omitempty"`
	// Tool is the confirmed selection on SELECTED; ToolNone means cancel.
	Tool Tool `json:"tool,omitempty"`
}

// Config holds the tunable constants of the machine.
type Config struct {
	HoldDuration time.Duration    `yaml:"hold_duration" json:"hold_duration" env:"HOLD_DURATION"`
	Deadzone     float64          `yaml:"deadzone" json:"deadzone" env:"DEADZONE"`
	Trigger      features.Pattern `yaml:"trigger" json:"trigger" env:"TRIGGER"`
	Layout       Layout           `yaml:"layout" json:"layout"`
}

// DefaultConfig returns a 0.4s hold, a 50px deadzone and the default layout.
func DefaultConfig() Config {
	return Config{
		HoldDuration: 400 * time.Millisecond,
		Deadzone:     50,
		Trigger:      features.Trigger,
		Layout:       DefaultLayout(),
	}
}

// Machine tracks menu trigger timing, hover position and selection. It is
// mutated only by Update and is not safe for concurrent use.
type Machine struct {
	cfg Config

	state     State
	holdStart time.Time
	anchor    features.Vec2
	hover     features.Vec2
	selection Tool
}

// New creates a machine in the Idle state.
func New(cfg Config) *Machine {
	if cfg.Trigger.IsZero() {
		cfg.Trigger = features.Trigger
	}
	return &Machine{cfg: cfg}
}

// Update advances the machine by one tick. A nil f means no hand was
// observed; an open menu then resolves as if the gesture had been released
// at the last hover position.
func (m *Machine) Update(f *features.Features, now time.Time) Event {
	if f == nil {
		if m.state == MenuActive {
			return m.release(m.hover)
		}
		m.reset()
		return Event{Kind: KindIdle}
	}

	trigger := m.cfg.Trigger.Match(f.Fingers)

	switch m.state {
	case MenuActive:
		if !trigger {
			return m.release(f.IndexTip)
		}
		m.hover = f.IndexTip
		angle, dist := Polar(m.anchor, m.hover)
		anchor := m.anchor
		return Event{Kind: KindMenuActive, Anchor: &anchor, Angle: angle, Distance: dist}

	case TriggerHolding:
		if !trigger {
			m.reset()
			return Event{Kind: KindIdle}
		}
		held := now.Sub(m.holdStart)
		if held >= m.cfg.HoldDuration {
			m.state = MenuActive
			m.anchor = f.IndexTip
			m.hover = f.IndexTip
			anchor := m.anchor
			return Event{Kind: KindMenuOpened, Anchor: &anchor, Progress: 1}
		}
		return Event{Kind: KindTriggering, Progress: m.progress(held)}

	default:
		if !trigger {
			return Event{Kind: KindIdle}
		}
		m.state = TriggerHolding
		m.holdStart = now
		if m.cfg.HoldDuration <= 0 {
			// A zero hold opens on the next tick that still holds.
			return Event{Kind: KindTriggering, Progress: 1}
		}
		return Event{Kind: KindTriggering}
	}
}

// release resolves the sector under pos, latches the selection and returns
// to Idle.
func (m *Machine) release(pos features.Vec2) Event {
	angle, dist := Polar(m.anchor, pos)
	tool := ToolNone
	if dist >= m.cfg.Deadzone {
		tool = m.cfg.Layout.Tool(SectorOf(angle))
	}
	m.selection = tool
	m.reset()
	return Event{Kind: KindSelected, Angle: angle, Distance: dist, Tool: tool}
}

func (m *Machine) progress(held time.Duration) float64 {
	if held <= 0 {
		return 0
	}
	p := float64(held) / float64(m.cfg.HoldDuration)
	if p > 1 {
		p = 1
	}
	return p
}

func (m *Machine) reset() {
	m.state = Idle
	m.holdStart = time.Time{}
	m.anchor = features.Vec2{}
	m.hover = features.Vec2{}
}

// State returns the current resting state.
func (m *Machine) State() State {
	return m.state
}

// Anchor returns the latched menu center while the menu is open.
func (m *Machine) Anchor() (features.Vec2, bool) {
	return m.anchor, m.state == MenuActive
}

// Selection returns the last confirmed selection, ToolNone if the last
// release was cancelled or nothing was selected yet.
func (m *Machine) Selection() Tool {
	return m.selection
}

// Reset returns the machine to Idle, keeping the last selection.
func (m *Machine) Reset() {
	m.reset()
}
