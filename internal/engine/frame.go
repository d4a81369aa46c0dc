package engine

import (
	"strconv"
	"time"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/menu"
)

// HandSummary describes the hand that drove a tick.
type HandSummary struct {
	Handedness detector.Handedness `json:"handedness"`
	Fingers    string              `json:"fingers"`
	IndexTip   features.Vec2       `json:"index_tip"`
	HandScale  float64             `json:"hand_scale"`
}

// Frame is the output of one tick.
type Frame struct {
	Seq     uint64       `json:"seq"`
	Time    time.Time    `json:"time"`
	TrackID string       `json:"track_id,omitempty"`
	Hand    *HandSummary `json:"hand,omitempty"`
	// Rejected names why the observation was dropped, if it was.
	Rejected string `json:"rejected,omitempty"`

	Menu        menu.Event `json:"menu"`
	Tool        menu.Tool  `json:"tool"`
	ToolChanged bool       `json:"tool_changed,omitempty"`

	Zoom  *control.ZoomState  `json:"zoom,omitempty"`
	Swipe control.Direction   `json:"swipe,omitempty"`
	Deck  *control.DeckState  `json:"deck,omitempty"`
	Brush *control.BrushState `json:"brush,omitempty"`
	// Clear names the painter layer to wipe.
	Clear menu.Tool           `json:"clear,omitempty"`
	Click *control.ClickEvent `json:"click,omitempty"`
}

// EventKind names a discrete occurrence within a frame.
type EventKind string

const (
	EventMenuOpened  EventKind = "menu_opened"
	EventSelected    EventKind = "selected"
	EventCancelled   EventKind = "cancelled"
	EventToolChanged EventKind = "tool_changed"
	EventSwipe       EventKind = "swipe"
	EventSlide       EventKind = "slide"
	EventClick       EventKind = "click"
	EventClear       EventKind = "clear"
	EventRejected    EventKind = "rejected"
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventMenuOpened, EventSelected, EventCancelled, EventToolChanged,
		EventSwipe, EventSlide, EventClick, EventClear, EventRejected:
		return true
	}
	return false
}

// Event is a discrete occurrence extracted from a frame.
type Event struct {
	Kind  EventKind `json:"kind"`
	Value string    `json:"value,omitempty"`
}

// Events lists the discrete occurrences of the frame in a fixed order.
// Continuous state such as hover angle or zoom scale is not included.
func (f Frame) Events() []Event {
	var out []Event
	if f.Rejected != "" {
		out = append(out, Event{Kind: EventRejected, Value: f.Rejected})
	}
	switch f.Menu.Kind {
	case menu.KindMenuOpened:
		out = append(out, Event{Kind: EventMenuOpened})
	case menu.KindSelected:
		if f.Menu.Tool == menu.ToolNone {
			out = append(out, Event{Kind: EventCancelled})
		} else {
			out = append(out, Event{Kind: EventSelected, Value: string(f.Menu.Tool)})
		}
	}
	if f.ToolChanged {
		out = append(out, Event{Kind: EventToolChanged, Value: string(f.Tool)})
	}
	if f.Swipe != control.NoDirection {
		out = append(out, Event{Kind: EventSwipe, Value: string(f.Swipe)})
	}
	if f.Deck != nil && f.Deck.Changed {
		out = append(out, Event{Kind: EventSlide, Value: strconv.Itoa(f.Deck.Index)})
	}
	if f.Click != nil {
		out = append(out, Event{Kind: EventClick})
	}
	if f.Clear != menu.ToolNone {
		out = append(out, Event{Kind: EventClear, Value: string(f.Clear)})
	}
	return out
}
