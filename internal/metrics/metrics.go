// Package metrics exposes pipeline counters on a dedicated prometheus
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors updated by the engine and host.
type Metrics struct {
	registry *prometheus.Registry

	ticks          prometheus.Counter
	tickDuration   prometheus.Histogram
	menuEvents     *prometheus.CounterVec
	toolSelections *prometheus.CounterVec
	swipes         *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	tracks         prometheus.Gauge
	publishErrors  *prometheus.CounterVec
	pluginRuns     *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mudra_ticks_total",
			Help: "Total number of pipeline ticks",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mudra_tick_duration_seconds",
			Help:    "Time spent in one pipeline tick",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
		}),
		menuEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudra_menu_events_total",
			Help: "Menu events emitted, by kind",
		}, []string{"kind"}),
		toolSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudra_tool_selections_total",
			Help: "Confirmed tool selections, by tool",
		}, []string{"tool"}),
		swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudra_swipes_total",
			Help: "Swipes detected, by direction",
		}, []string{"direction"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudra_rejected_observations_total",
			Help: "Observations rejected as malformed, by reason",
		}, []string{"reason"}),
		tracks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mudra_tracks_active",
			Help: "Hand tracks currently holding filter state",
		}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudra_publish_errors_total",
			Help: "Frames a sink failed to publish, by sink",
		}, []string{"sink"}),
		pluginRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mudra_plugin_runs_total",
			Help: "Plugin actions run, by plugin and result",
		}, []string{"plugin", "result"}),
	}

	m.registry.MustRegister(
		m.ticks, m.tickDuration, m.menuEvents, m.toolSelections,
		m.swipes, m.rejected, m.tracks, m.publishErrors, m.pluginRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTick counts one tick and its duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// MenuEvent counts a menu event.
func (m *Metrics) MenuEvent(kind string) {
	if m == nil {
		return
	}
	m.menuEvents.WithLabelValues(kind).Inc()
}

// ToolSelected counts a confirmed selection.
func (m *Metrics) ToolSelected(tool string) {
	if m == nil {
		return
	}
	m.toolSelections.WithLabelValues(tool).Inc()
}

// Swipe counts a detected swipe.
func (m *Metrics) Swipe(direction string) {
	if m == nil {
		return
	}
	m.swipes.WithLabelValues(direction).Inc()
}

// Rejected counts a malformed observation.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// Tracks sets the number of live tracks.
func (m *Metrics) Tracks(n int) {
	if m == nil {
		return
	}
	m.tracks.Set(float64(n))
}

// PublishError counts a failed sink publish.
func (m *Metrics) PublishError(sink string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(sink).Inc()
}

// PluginRun counts a plugin execution. result is ok, failed or dropped.
func (m *Metrics) PluginRun(plugin, result string) {
	if m == nil {
		return
	}
	m.pluginRuns.WithLabelValues(plugin, result).Inc()
}
