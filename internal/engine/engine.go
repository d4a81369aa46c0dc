// Package engine runs the per-tick gesture pipeline: smoothing, feature
// extraction, the menu state machine and dispatch to the active tool.
package engine

import (
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/menu"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/smooth"
)

// Rejection reasons reported in frames and metrics.
const (
	ReasonLandmarkCount = "landmark_count"
	ReasonNonFinite     = "non_finite"
	ReasonHandedness    = "handedness"
	ReasonInvalid       = "invalid"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine owns every piece of interaction state. Tick is its only mutator
// besides the explicit setters; it is not safe for concurrent use.
type Engine struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	warn    *rate.Sometimes

	seq  uint64
	tool menu.Tool

	tracks *smooth.Tracks
	menu   *menu.Machine
	zoom   *control.Zoom
	swipe  control.SwipeDetector
	deck   *control.Deck
	brush  *control.Brush
	click  *control.Click
}

// New validates cfg and builds an engine with the initial tool active.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: logging.NewNop(),
		warn:   &rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.build(cfg); err != nil {
		return nil, err
	}
	e.tool = e.cfg.InitialTool
	return e, nil
}

func (e *Engine) build(cfg Config) error {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	swipe, err := control.NewSwipeDetector(cfg.Swipe)
	if err != nil {
		return err
	}

	e.cfg = cfg
	e.tracks = smooth.NewTracks(cfg.Filter, cfg.TrackGrace())
	e.menu = menu.New(cfg.Menu)
	e.zoom = control.NewZoom(cfg.Zoom)
	e.swipe = swipe
	e.deck = control.NewDeck(cfg.Deck)
	e.brush = control.NewBrush(cfg.Brush)
	e.click = control.NewClick(cfg.Click)
	return nil
}

// Reconfigure replaces the configuration. All interaction state is rebuilt
// except the active tool and the host-provided slide count. On error the
// engine is left unchanged.
func (e *Engine) Reconfigure(cfg Config) error {
	prev := *e
	if err := e.build(cfg); err != nil {
		*e = prev
		return err
	}
	if cfg.Deck.Slides == 0 {
		e.deck.SetSlides(prev.deck.State().Slides)
	}
	e.logger.Info("engine reconfigured",
		"swipe_mode", e.cfg.Swipe.Mode,
		"smoothing", e.cfg.Smoothing,
		"grace", e.cfg.TrackGrace(),
	)
	return nil
}

// Tick advances the pipeline by one frame. obs is the single authoritative
// hand for this tick, or nil when none was observed.
func (e *Engine) Tick(now time.Time, obs *detector.HandObservation) Frame {
	start := time.Now()
	e.seq++
	fr := Frame{Seq: e.seq, Time: now}

	f := e.observe(now, obs, &fr)
	e.tracks.Prune(now)
	e.metrics.Tracks(e.tracks.Len())

	ev := e.menu.Update(f, now)
	fr.Menu = ev
	e.metrics.MenuEvent(string(ev.Kind))
	if ev.Kind == menu.KindSelected {
		e.selected(&fr, ev)
	}

	switch {
	case f == nil:
		e.release()
	case ev.Kind == menu.KindIdle:
		e.dispatch(&fr, *f, now)
	default:
		e.release()
	}

	if f != nil && isPainter(e.tool) && e.brush.Clears(f.Fingers) {
		fr.Clear = e.tool
	}

	fr.Tool = e.tool
	e.metrics.ObserveTick(time.Since(start))
	return fr
}

// observe validates, smooths and extracts the observation. It returns nil
// when there is no usable hand this tick.
func (e *Engine) observe(now time.Time, obs *detector.HandObservation, fr *Frame) *features.Features {
	if obs == nil {
		return nil
	}
	if err := obs.Validate(); err != nil {
		e.reject(fr, err)
		return nil
	}

	o := *obs
	if e.cfg.Smoothing {
		var tr *smooth.Track
		o, tr = e.tracks.Smooth(o, now)
		fr.TrackID = tr.ID.String()
	}

	f, err := features.Extract(o)
	if err != nil {
		e.reject(fr, err)
		return nil
	}
	fr.Hand = &HandSummary{
		Handedness: f.Handedness,
		Fingers:    f.Fingers.String(),
		IndexTip:   f.IndexTip,
		HandScale:  f.HandScale,
	}
	return &f
}

func (e *Engine) reject(fr *Frame, err error) {
	reason := rejectReason(err)
	fr.Rejected = reason
	e.metrics.Rejected(reason)
	e.warn.Do(func() {
		e.logger.Warn("observation rejected", "reason", reason, "error", err)
	})
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, detector.ErrLandmarkCount):
		return ReasonLandmarkCount
	case errors.Is(err, detector.ErrNonFinite):
		return ReasonNonFinite
	case errors.Is(err, detector.ErrHandedness):
		return ReasonHandedness
	}
	return ReasonInvalid
}

func (e *Engine) selected(fr *Frame, ev menu.Event) {
	if ev.Tool == menu.ToolNone {
		e.logger.Debug("menu cancelled", "distance", ev.Distance)
		return
	}
	e.metrics.ToolSelected(string(ev.Tool))
	if ev.Tool == e.tool {
		return
	}
	e.logger.Info("tool switched", "from", e.tool, "to", ev.Tool, "angle", ev.Angle)
	e.tool = ev.Tool
	fr.ToolChanged = true
}

// dispatch runs the controllers of the active tool.
func (e *Engine) dispatch(fr *Frame, f features.Features, now time.Time) {
	if e.tool != menu.ToolMedia {
		e.release()
	}

	switch e.tool {
	case menu.ToolPainter:
		st := e.brush.Update(e.cfg.Brush.Painter, f)
		fr.Brush = &st
	case menu.ToolHighlighter:
		st := e.brush.Update(e.cfg.Brush.Highlighter, f)
		fr.Brush = &st
	case menu.ToolKeyboard:
		if c, ok := e.click.Update(f, now); ok {
			fr.Click = &c
		}
	case menu.ToolMedia:
		e.media(fr, f, now)
	}
}

// media runs zoom/pan and the slide deck. Swipes are only detected while
// the deck is visible.
func (e *Engine) media(fr *Frame, f features.Features, now time.Time) {
	zs := e.zoom.Update(f, e.cfg.Zoom.Gate.Match(f.Fingers))
	fr.Zoom = &zs

	visible := e.deck.Observe(f.Fingers)
	gated := visible && e.cfg.Swipe.Gate.Match(f.Fingers)

	changed := false
	if dir, ok := e.swipe.Update(control.SampleOf(f, gated, now)); ok {
		fr.Swipe = dir
		e.metrics.Swipe(string(dir))
		changed = e.deck.Apply(dir)
		e.logger.Debug("swipe", "direction", dir, "slide", e.deck.State().Index)
	}

	ds := e.deck.State()
	ds.Changed = changed
	fr.Deck = &ds
}

// release drops the partial gestures of the continuous controllers.
func (e *Engine) release() {
	e.zoom.Release()
	e.swipe.Reset()
}

func isPainter(t menu.Tool) bool {
	return t == menu.ToolPainter || t == menu.ToolHighlighter
}

// Tool returns the active tool.
func (e *Engine) Tool() menu.Tool {
	return e.tool
}

// SetTool switches the active tool directly.
func (e *Engine) SetTool(t menu.Tool) error {
	if _, err := menu.ParseTool(string(t)); err != nil {
		return err
	}
	e.release()
	e.tool = t
	return nil
}

// SetSlides tells the deck how many slides the host has loaded.
func (e *Engine) SetSlides(n int) {
	e.deck.SetSlides(n)
}

// Zoom returns the current zoom state.
func (e *Engine) Zoom() control.ZoomState {
	return e.zoom.State()
}

// Deck returns the current deck state.
func (e *Engine) Deck() control.DeckState {
	return e.deck.State()
}

// MenuState returns the resting state of the menu machine.
func (e *Engine) MenuState() menu.State {
	return e.menu.State()
}

// Tracks returns the number of live hand tracks.
func (e *Engine) Tracks() int {
	return e.tracks.Len()
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	return e.cfg
}
