package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Counts(t *testing.T) {
	m := New()
	m.ObserveTick(2 * time.Millisecond)
	m.ObserveTick(time.Millisecond)
	m.MenuEvent("SELECTED")
	m.ToolSelected("MEDIA")
	m.Swipe("LEFT")
	m.Swipe("LEFT")
	m.Rejected("landmark_count")
	m.Tracks(2)
	m.PublishError("redis")
	m.PluginRun("keyboard", "ok")

	body := scrape(t, m)
	for _, want := range []string{
		"mudra_ticks_total 2",
		"mudra_tick_duration_seconds_count 2",
		`mudra_menu_events_total{kind="SELECTED"} 1`,
		`mudra_tool_selections_total{tool="MEDIA"} 1`,
		`mudra_swipes_total{direction="LEFT"} 2`,
		`mudra_rejected_observations_total{reason="landmark_count"} 1`,
		"mudra_tracks_active 2",
		`mudra_publish_errors_total{sink="redis"} 1`,
		`mudra_plugin_runs_total{plugin="keyboard",result="ok"} 1`,
	} {
		assert.Contains(t, body, want)
	}

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Swipe("UP")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `mudra_swipes_total{direction="UP"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTick(time.Second)
		m.MenuEvent("IDLE")
		m.ToolSelected("PAINTER")
		m.Swipe("DOWN")
		m.Rejected("x")
		m.Tracks(1)
		m.PublishError("ws")
		m.PluginRun("p", "failed")
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
