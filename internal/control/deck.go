package control

import "github.com/ayusman/mudra/internal/features"

// DeckConfig controls slide visibility gestures.
type DeckConfig struct {
	Slides int              `yaml:"slides" json:"slides" env:"SLIDES"`
	Show   features.Pattern `yaml:"show" json:"show" env:"SHOW"`
	Hide   features.Pattern `yaml:"hide" json:"hide" env:"HIDE"`
}

// DefaultDeckConfig shows slides on an open palm and hides them when the
// four fingers close.
func DefaultDeckConfig() DeckConfig {
	return DeckConfig{
		Show: features.Palm,
		Hide: features.Closed,
	}
}

// DeckState is the slide the host should present.
type DeckState struct {
	Visible bool `json:"visible"`
	Index   int  `json:"index"`
	Slides  int  `json:"slides"`
	// Changed is set on the tick the index moved.
	Changed bool `json:"changed,omitempty"`
}

// Deck tracks the current slide and its visibility.
type Deck struct {
	cfg     DeckConfig
	slides  int
	index   int
	visible bool
}

// NewDeck creates a visible deck at the first slide.
func NewDeck(cfg DeckConfig) *Deck {
	return &Deck{cfg: cfg, slides: cfg.Slides, visible: true}
}

// Observe updates visibility from the finger vector and reports whether
// the deck is visible.
func (d *Deck) Observe(f features.Fingers) bool {
	switch {
	case d.cfg.Show.Match(f):
		d.visible = true
	case d.cfg.Hide.Match(f):
		d.visible = false
	}
	return d.visible
}

// Apply moves the deck for a swipe. A swipe to the right goes back one
// slide and a swipe to the left goes forward, wrapping at both ends.
// Vertical swipes and hidden decks are ignored.
func (d *Deck) Apply(dir Direction) bool {
	if !d.visible || d.slides <= 1 {
		return false
	}
	switch dir {
	case Right:
		d.index = (d.index - 1 + d.slides) % d.slides
	case Left:
		d.index = (d.index + 1) % d.slides
	default:
		return false
	}
	return true
}

// SetSlides sets the slide count, clamping the current index.
func (d *Deck) SetSlides(n int) {
	if n < 0 {
		n = 0
	}
	d.slides = n
	if d.index >= n {
		d.index = 0
	}
}

// State returns the current deck state.
func (d *Deck) State() DeckState {
	return DeckState{Visible: d.visible, Index: d.index, Slides: d.slides}
}
