// Package app runs the tick loop: it pulls observations from a source,
// advances the engine and fans every frame out to the sinks.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/menu"
	"github.com/ayusman/mudra/internal/metrics"
)

// ErrBusy is returned when too many commands are waiting for the next tick.
var ErrBusy = errors.New("too many pending commands")

const commandQueue = 16

// Sink receives every frame the engine produces.
type Sink interface {
	Publish(ctx context.Context, fr engine.Frame) error
}

type namedSink struct {
	name string
	Sink
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// WithSink adds s under name. Sinks run in the order they were added.
func WithSink(name string, s Sink) Option {
	return func(a *App) {
		a.sinks = append(a.sinks, namedSink{name: name, Sink: s})
	}
}

// WithEnabled sets the initial enabled state. The default is enabled.
func WithEnabled(enabled bool) Option {
	return func(a *App) {
		a.enabled = enabled
	}
}

// App owns the engine. Only Run touches it; the setters queue commands
// that Run applies between ticks.
type App struct {
	engine  *engine.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
	sinks   []namedSink
	warn    *rate.Sometimes

	mu      sync.RWMutex
	enabled bool

	commands chan func(*engine.Engine) error
}

// New builds the engine from cfg.
func New(cfg engine.Config, opts ...Option) (*App, error) {
	a := &App{
		logger:   logging.NewNop(),
		warn:     &rate.Sometimes{First: 1, Interval: 5 * time.Second},
		enabled:  true,
		commands: make(chan func(*engine.Engine) error, commandQueue),
	}
	for _, opt := range opts {
		opt(a)
	}
	eng, err := engine.New(cfg, engine.WithLogger(a.logger), engine.WithMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	a.engine = eng
	return a, nil
}

// AddSink appends s under name. It must be called before Run.
func (a *App) AddSink(name string, s Sink) {
	a.sinks = append(a.sinks, namedSink{name: name, Sink: s})
}

// SetEnabled pauses or resumes ticking.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled != enabled {
		a.logger.Info("gesture tracking toggled", "enabled", enabled)
	}
	a.enabled = enabled
}

// IsEnabled returns whether ticks reach the engine.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetTool switches the active tool before the next tick.
func (a *App) SetTool(t menu.Tool) error {
	if _, err := menu.ParseTool(string(t)); err != nil {
		return err
	}
	return a.enqueue(func(e *engine.Engine) error { return e.SetTool(t) })
}

// SetSlides sets the deck slide count before the next tick.
func (a *App) SetSlides(n int) error {
	if n < 0 {
		return fmt.Errorf("slides must not be negative, got %d", n)
	}
	return a.enqueue(func(e *engine.Engine) error {
		e.SetSlides(n)
		return nil
	})
}

// Reconfigure replaces the engine configuration before the next tick. The
// active tool survives.
func (a *App) Reconfigure(cfg engine.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return a.enqueue(func(e *engine.Engine) error { return e.Reconfigure(cfg) })
}

func (a *App) enqueue(cmd func(*engine.Engine) error) error {
	select {
	case a.commands <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

// apply runs the queued commands.
func (a *App) apply() {
	for {
		select {
		case cmd := <-a.commands:
			if err := cmd(a.engine); err != nil {
				a.logger.Warn("command rejected", "error", err)
			}
		default:
			return
		}
	}
}

// Run ticks the engine with the observations of src until src is
// exhausted or ctx is done. An exhausted source is not an error.
func (a *App) Run(ctx context.Context, src Source) error {
	a.logger.Info("tick loop started", "tool", a.engine.Tool(), "sinks", len(a.sinks))
	defer a.logger.Info("tick loop stopped")

	for {
		tick, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read source: %w", err)
		}

		a.apply()
		if !a.IsEnabled() {
			continue
		}
		a.publish(ctx, a.engine.Tick(tick.Time, Pick(tick.Hands)))
	}
}

// Step applies queued commands and runs one tick outside of Run.
func (a *App) Step(ctx context.Context, tick Tick) engine.Frame {
	a.apply()
	fr := a.engine.Tick(tick.Time, Pick(tick.Hands))
	a.publish(ctx, fr)
	return fr
}

func (a *App) publish(ctx context.Context, fr engine.Frame) {
	for _, s := range a.sinks {
		if err := s.Publish(ctx, fr); err != nil {
			a.metrics.PublishError(s.name)
			a.warn.Do(func() {
				a.logger.Warn("sink publish failed", "sink", s.name, "seq", fr.Seq, "error", err)
			})
		}
	}
}

// Pick returns the hand that drives the tick: the first one that passes
// validation. When none does, the first hand is returned so the engine
// records the rejection.
func Pick(hands []detector.HandObservation) *detector.HandObservation {
	for i := range hands {
		if hands[i].Validate() == nil {
			return &hands[i]
		}
	}
	if len(hands) > 0 {
		return &hands[0]
	}
	return nil
}
