// Package tray provides a system tray menu for pausing tracking, switching
// tools and seeing the last gesture event.
package tray

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/menu"
)

// Controller is the part of the app the tray drives.
type Controller interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
	SetTool(t menu.Tool) error
}

var tools = []menu.Tool{menu.ToolKeyboard, menu.ToolMedia, menu.ToolPainter, menu.ToolHighlighter}

// Tray mirrors the app state in the system tray.
type Tray struct {
	ctrl   Controller
	logger *slog.Logger
	onOpen func()
	onQuit func()

	mu        sync.RWMutex
	tool      menu.Tool
	lastEvent string

	// Menu items exist only while Run is active.
	menuToggle *systray.MenuItem
	menuTool   *systray.MenuItem
	menuLast   *systray.MenuItem
}

// Option configures a Tray.
type Option func(*Tray)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tray) {
		t.logger = logger
	}
}

// OnOpen sets the callback of the "Open UI" item.
func OnOpen(fn func()) Option {
	return func(t *Tray) {
		t.onOpen = fn
	}
}

// OnQuit sets the callback of the "Quit" item.
func OnQuit(fn func()) Option {
	return func(t *Tray) {
		t.onQuit = fn
	}
}

// New creates a tray bound to ctrl.
func New(ctrl Controller, opts ...Option) *Tray {
	t := &Tray{ctrl: ctrl, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run shows the tray. It blocks until Quit is chosen or Stop is called and
// must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Stop removes the tray and makes Run return.
func (t *Tray) Stop() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra hand gesture control")

	toggle := systray.AddMenuItem(toggleTitle(t.ctrl.IsEnabled()), "Pause or resume tracking")
	systray.AddSeparator()

	t.mu.RLock()
	toolItem := systray.AddMenuItem(toolTitle(t.tool), "Switch the active tool")
	lastItem := systray.AddMenuItem(lastTitle(t.lastEvent), "Last gesture event")
	t.mu.RUnlock()
	lastItem.Disable()

	picks := make([]*systray.MenuItem, len(tools))
	for i, tool := range tools {
		picks[i] = toolItem.AddSubMenuItem(string(tool), "Switch to "+strings.ToLower(string(tool)))
	}
	systray.AddSeparator()

	open := systray.AddMenuItem("Open UI...", "Open the web interface")
	quit := systray.AddMenuItem("Quit", "Quit Mudra")

	t.mu.Lock()
	t.menuToggle, t.menuTool, t.menuLast = toggle, toolItem, lastItem
	t.mu.Unlock()

	for i, item := range picks {
		go func(tool menu.Tool, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.pickTool(tool)
			}
		}(tools[i], item)
	}

	go func() {
		for {
			select {
			case <-toggle.ClickedCh:
				t.toggle()
			case <-open.ClickedCh:
				if t.onOpen != nil {
					t.onOpen()
				}
			case <-quit.ClickedCh:
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) toggle() {
	enabled := !t.ctrl.IsEnabled()
	t.ctrl.SetEnabled(enabled)

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

func (t *Tray) pickTool(tool menu.Tool) {
	if err := t.ctrl.SetTool(tool); err != nil {
		t.logger.Warn("tray tool switch failed", "tool", tool, "error", err)
	}
}

// Publish updates the tool and last event labels from fr.
func (t *Tray) Publish(_ context.Context, fr engine.Frame) error {
	events := fr.Events()

	t.mu.Lock()
	defer t.mu.Unlock()
	if fr.Tool != t.tool {
		t.tool = fr.Tool
		if t.menuTool != nil {
			t.menuTool.SetTitle(toolTitle(t.tool))
		}
	}
	for _, ev := range events {
		if ev.Kind == engine.EventRejected {
			continue
		}
		t.lastEvent = describe(ev)
		if t.menuLast != nil {
			t.menuLast.SetTitle(lastTitle(t.lastEvent))
		}
	}
	return nil
}

// Tool returns the tool of the last published frame.
func (t *Tray) Tool() menu.Tool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tool
}

// LastEvent returns the label of the last event shown.
func (t *Tray) LastEvent() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastEvent
}

func describe(ev engine.Event) string {
	s := strings.ReplaceAll(string(ev.Kind), "_", " ")
	if ev.Value != "" {
		s += " " + ev.Value
	}
	return s
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Paused"
}

func toolTitle(tool menu.Tool) string {
	if tool == menu.ToolNone {
		return "Tool: none"
	}
	return "Tool: " + string(tool)
}

func lastTitle(ev string) string {
	if ev == "" {
		return "Last: none"
	}
	return "Last: " + ev
}
