package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/metrics"
)

// ErrQueueFull is returned by Publish when the worker is behind.
var ErrQueueFull = errors.New("plugin queue full")

type job struct {
	plugin string
	req    Request
}

// Dispatcher runs the plugin actions bound to frame events. Publish only
// queues work; Run executes it on its own goroutine.
type Dispatcher struct {
	manager *Manager
	exec    *Executor
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	bindings map[string][]Binding

	queue chan job
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher binds the events of cfg.Bindings to plugins from manager.
func NewDispatcher(cfg Config, manager *Manager, opts ...DispatcherOption) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Queue <= 0 {
		cfg.Queue = DefaultConfig().Queue
	}
	d := &Dispatcher{
		manager:  manager,
		exec:     NewExecutor(cfg.Timeout),
		logger:   logging.NewNop(),
		bindings: make(map[string][]Binding),
		queue:    make(chan job, cfg.Queue),
	}
	for _, opt := range opts {
		opt(d)
	}
	for event, b := range cfg.Bindings {
		d.Bind(event, b)
	}
	return d
}

// Bind adds b for event. Several bindings may share an event.
func (d *Dispatcher) Bind(event string, b Binding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings[event] = append(d.bindings[event], b)
}

// SetBindings replaces every binding.
func (d *Dispatcher) SetBindings(bindings map[string][]Binding) {
	next := make(map[string][]Binding, len(bindings))
	for event, bs := range bindings {
		next[event] = append([]Binding(nil), bs...)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings = next
}

// Bindings returns a copy of the bindings of event.
func (d *Dispatcher) Bindings(event string) []Binding {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Binding(nil), d.bindings[event]...)
}

// Publish queues the actions bound to the events of fr. It never blocks;
// requests that do not fit in the queue are dropped and reported.
func (d *Dispatcher) Publish(_ context.Context, fr engine.Frame) error {
	var dropped int
	for _, ev := range fr.Events() {
		for _, b := range d.match(ev) {
			req, err := request(b, ev, fr)
			if err != nil {
				return err
			}
			select {
			case d.queue <- job{plugin: b.Plugin, req: req}:
			default:
				dropped++
				d.metrics.PluginRun(b.Plugin, "dropped")
			}
		}
	}
	if dropped > 0 {
		return fmt.Errorf("%w: dropped %d", ErrQueueFull, dropped)
	}
	return nil
}

func (d *Dispatcher) match(ev engine.Event) []Binding {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Binding
	if ev.Value != "" {
		out = append(out, d.bindings[string(ev.Kind)+":"+ev.Value]...)
	}
	return append(out, d.bindings[string(ev.Kind)]...)
}

func request(b Binding, ev engine.Event, fr engine.Frame) (Request, error) {
	req := Request{
		Action: b.Action,
		Event:  string(ev.Kind),
		Value:  ev.Value,
		Tool:   string(fr.Tool),
	}
	if len(b.Params) > 0 {
		params, err := json.Marshal(b.Params)
		if err != nil {
			return req, fmt.Errorf("encode params for %s/%s: %w", b.Plugin, b.Action, err)
		}
		req.Params = params
	}
	return req, nil
}

// Run executes queued requests until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-d.queue:
			d.run(ctx, j)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, j job) {
	p, err := d.manager.Get(j.plugin)
	if err == nil && !p.Manifest.Supports(j.req.Action) {
		err = fmt.Errorf("plugin %s has no action %q", j.plugin, j.req.Action)
	}
	var resp *Response
	if err == nil {
		resp, err = d.exec.Execute(ctx, p, &j.req)
	}
	if err == nil && !resp.Success {
		err = errors.New(resp.Error)
	}

	if err != nil {
		d.metrics.PluginRun(j.plugin, "failed")
		d.logger.Warn("plugin action failed",
			"plugin", j.plugin, "action", j.req.Action, "event", j.req.Event, "error", err)
		return
	}
	d.metrics.PluginRun(j.plugin, "ok")
	d.logger.Debug("plugin action ran", "plugin", j.plugin, "action", j.req.Action, "event", j.req.Event)
}
