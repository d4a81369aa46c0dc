// Package plugin discovers external action plugins and runs them in
// response to engine events.
package plugin

import (
	"encoding/json"
	"time"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Supports reports whether the manifest lists action. A manifest without
// actions accepts any.
func (m Manifest) Supports(action string) bool {
	if len(m.Actions) == 0 {
		return true
	}
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Action string          `json:"action"`
	Event  string          `json:"event"`
	Value  string          `json:"value,omitempty"`
	Tool   string          `json:"tool,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout as JSON.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Binding maps an engine event to a plugin action.
type Binding struct {
	Plugin string         `yaml:"plugin" json:"plugin"`
	Action string         `yaml:"action" json:"action"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Config locates plugins and binds events to them. Binding keys are
// "kind:value" or a bare kind, for example "swipe:LEFT" or "click".
type Config struct {
	Dir      string             `yaml:"dir" json:"dir" env:"DIR"`
	Timeout  time.Duration      `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
	Queue    int                `yaml:"queue" json:"queue" env:"QUEUE"`
	Bindings map[string]Binding `yaml:"bindings" json:"bindings"`
}

// DefaultConfig returns a five second timeout and a queue of 16 requests.
func DefaultConfig() Config {
	return Config{Timeout: 5 * time.Second, Queue: 16}
}
