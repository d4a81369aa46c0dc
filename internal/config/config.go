// Package config loads the application configuration from a YAML file,
// persisted settings and MUDRA_ environment variables, in that order.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/menu"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/sink"
	"github.com/ayusman/mudra/internal/smooth"
	"github.com/ayusman/mudra/internal/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MUDRA_"

// Config is the full application configuration.
type Config struct {
	Tracking    detector.Config `yaml:"tracking" json:"tracking" envPrefix:"TRACKING_"`
	Smoothing   Smoothing       `yaml:"smoothing" json:"smoothing" envPrefix:"SMOOTHING_"`
	InitialTool menu.Tool       `yaml:"initial_tool" json:"initial_tool" env:"INITIAL_TOOL"`

	Menu  menu.Config         `yaml:"menu" json:"menu" envPrefix:"MENU_"`
	Zoom  control.ZoomConfig  `yaml:"zoom" json:"zoom" envPrefix:"ZOOM_"`
	Swipe control.SwipeConfig `yaml:"swipe" json:"swipe" envPrefix:"SWIPE_"`
	Deck  control.DeckConfig  `yaml:"deck" json:"deck" envPrefix:"DECK_"`
	Brush control.BrushConfig `yaml:"brush" json:"brush" envPrefix:"BRUSH_"`
	Click control.ClickConfig `yaml:"click" json:"click" envPrefix:"CLICK_"`

	Capture capture.Config   `yaml:"capture" json:"capture" envPrefix:"CAPTURE_"`
	Server  server.Config    `yaml:"server" json:"server" envPrefix:"SERVER_"`
	Store   store.Config     `yaml:"store" json:"store" envPrefix:"STORE_"`
	Redis   sink.RedisConfig `yaml:"redis" json:"redis" envPrefix:"REDIS_"`
	Metrics Metrics          `yaml:"metrics" json:"metrics" envPrefix:"METRICS_"`
	Log     logging.Config   `yaml:"log" json:"log" envPrefix:"LOG_"`
	Actions plugin.Config    `yaml:"actions" json:"actions" envPrefix:"ACTIONS_"`
}

// Smoothing configures the landmark filters.
type Smoothing struct {
	Enabled       bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
	smooth.Params `yaml:",inline"`
	// Grace is how long a hand track survives without observations.
	Grace time.Duration `yaml:"grace" json:"grace" env:"GRACE"`
}

// Metrics toggles the prometheus endpoint.
type Metrics struct {
	Enabled bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
}

// Default returns the built-in configuration.
func Default() Config {
	e := engine.DefaultConfig()
	return Config{
		Tracking: detector.DefaultConfig(),
		Smoothing: Smoothing{
			Enabled: e.Smoothing,
			Params:  e.Filter,
			Grace:   e.Grace,
		},
		InitialTool: e.InitialTool,
		Menu:        e.Menu,
		Zoom:        e.Zoom,
		Swipe:       e.Swipe,
		Deck:        e.Deck,
		Brush:       e.Brush,
		Click:       e.Click,
		Capture:     capture.DefaultConfig(),
		Server:      server.DefaultConfig(),
		Store:       store.Config{Enabled: true},
		Redis:       sink.DefaultRedisConfig(),
		Metrics:     Metrics{Enabled: true},
		Log:         logging.Config{Level: "info", Format: "text"},
		Actions:     plugin.DefaultConfig(),
	}
}

// SettingsSource supplies persisted overrides keyed by dotted path.
type SettingsSource interface {
	All(ctx context.Context) (map[string]string, error)
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	settings SettingsSource
	environ  map[string]string
}

// WithSettings applies the overrides of src after the file.
func WithSettings(src SettingsSource) LoadOption {
	return func(o *loadOptions) {
		o.settings = src
	}
}

// WithEnvironment reads overrides from environ instead of the process
// environment.
func WithEnvironment(environ map[string]string) LoadOption {
	return func(o *loadOptions) {
		o.environ = environ
	}
}

// Load builds the configuration: defaults, then the file at path (skipped
// when path is empty), then persisted settings, then environment variables.
// The result is validated.
func Load(ctx context.Context, path string, opts ...LoadOption) (Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if o.settings != nil {
		settings, err := o.settings.All(ctx)
		if err != nil {
			return Config{}, fmt.Errorf("read settings: %w", err)
		}
		if err := ApplySettings(&cfg, settings); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix, Environment: o.environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Validate reports every invalid value at once.
func (c Config) Validate() error {
	errs := []error{c.Engine().Validate()}
	if err := c.Capture.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Tracking.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("tracking max_hands must be at least 1, got %d", c.Tracking.MaxHands))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		errs = append(errs, errors.New("server addr is required when the server is enabled"))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis addr is required when redis is enabled"))
	}
	if c.Actions.Timeout < 0 {
		errs = append(errs, fmt.Errorf("actions timeout must not be negative, got %v", c.Actions.Timeout))
	}
	for event, b := range c.Actions.Bindings {
		if b.Plugin == "" || b.Action == "" {
			errs = append(errs, fmt.Errorf("binding %q needs a plugin and an action", event))
		}
	}
	return errors.Join(errs...)
}

// Engine returns the pipeline configuration.
func (c Config) Engine() engine.Config {
	return engine.Config{
		Smoothing:   c.Smoothing.Enabled,
		Filter:      c.Smoothing.Params,
		Grace:       c.Smoothing.Grace,
		Mode:        c.Tracking.Mode,
		InitialTool: c.InitialTool,
		Menu:        c.Menu,
		Zoom:        c.Zoom,
		Swipe:       c.Swipe,
		Deck:        c.Deck,
		Brush:       c.Brush,
		Click:       c.Click,
	}
}

// YAML renders the configuration as a loadable YAML document.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
