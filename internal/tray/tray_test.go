package tray

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/menu"
)

type fakeController struct {
	enabled bool
	tool    menu.Tool
	err     error
}

func (c *fakeController) IsEnabled() bool           { return c.enabled }
func (c *fakeController) SetEnabled(enabled bool)   { c.enabled = enabled }
func (c *fakeController) SetTool(t menu.Tool) error { c.tool = t; return c.err }

func TestTray_Publish(t *testing.T) {
	tr := New(&fakeController{enabled: true})
	assert.Equal(t, menu.ToolNone, tr.Tool())
	assert.Empty(t, tr.LastEvent())

	frames := []struct {
		fr   engine.Frame
		tool menu.Tool
		last string
	}{
		{engine.Frame{Tool: menu.ToolNone}, menu.ToolNone, ""},
		{engine.Frame{Tool: menu.ToolMedia, ToolChanged: true, Menu: menu.Event{Kind: menu.KindSelected, Tool: menu.ToolMedia}}, menu.ToolMedia, "tool changed MEDIA"},
		{engine.Frame{Tool: menu.ToolMedia, Swipe: control.Left}, menu.ToolMedia, "swipe LEFT"},
		{engine.Frame{Tool: menu.ToolMedia, Rejected: "landmark count"}, menu.ToolMedia, "swipe LEFT"},
		{engine.Frame{Tool: menu.ToolPainter, Clear: menu.ToolPainter}, menu.ToolPainter, "clear PAINTER"},
	}
	for i, f := range frames {
		require.NoError(t, tr.Publish(context.Background(), f.fr))
		assert.Equal(t, f.tool, tr.Tool(), "frame %d", i)
		assert.Equal(t, f.last, tr.LastEvent(), "frame %d", i)
	}
}

func TestTray_Controls(t *testing.T) {
	ctrl := &fakeController{enabled: true}
	tr := New(ctrl)

	tr.toggle()
	assert.False(t, ctrl.enabled)
	tr.toggle()
	assert.True(t, ctrl.enabled)

	tr.pickTool(menu.ToolKeyboard)
	assert.Equal(t, menu.ToolKeyboard, ctrl.tool)

	ctrl.err = errors.New("busy")
	assert.NotPanics(t, func() { tr.pickTool(menu.ToolMedia) })
}

func TestTitles(t *testing.T) {
	assert.Equal(t, "● Enabled", toggleTitle(true))
	assert.Equal(t, "○ Paused", toggleTitle(false))
	assert.Equal(t, "Tool: none", toolTitle(menu.ToolNone))
	assert.Equal(t, "Tool: PAINTER_ALT", toolTitle(menu.ToolHighlighter))
	assert.Equal(t, "Last: none", lastTitle(""))
	assert.Equal(t, "menu opened", describe(engine.Event{Kind: engine.EventMenuOpened}))
}
