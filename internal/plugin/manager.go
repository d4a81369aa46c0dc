package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ayusman/mudra/internal/logging"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager manages plugin discovery and access.
type Manager struct {
	dir     string
	logger  *slog.Logger
	plugins map[string]*Plugin
	mu      sync.RWMutex
}

// NewManager creates a Manager for the plugins under dir.
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{dir: dir, logger: logger, plugins: make(map[string]*Plugin)}
}

// Discover scans dir for subdirectories holding a plugin.json manifest
// and replaces the known plugins with what it finds. A missing directory
// yields no plugins.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)
	defer func() {
		m.mu.Lock()
		m.plugins = found
		m.mu.Unlock()
	}()

	if m.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read plugin dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := load(filepath.Join(m.dir, entry.Name()))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			m.logger.Warn("skipping plugin", "dir", entry.Name(), "error", err)
			continue
		}
		found[p.Manifest.Name] = p
	}
	m.logger.Debug("plugins discovered", "dir", m.dir, "count", len(found))
	return nil
}

func load(path string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(path, "plugin.json"))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, fmt.Errorf("manifest needs a name and an executable")
	}
	return &Plugin{
		Manifest:   manifest,
		Path:       path,
		Executable: filepath.Join(path, manifest.Executable),
	}, nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return p, nil
}

// List returns the discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// Dir returns the plugin directory path.
func (m *Manager) Dir() string {
	return m.dir
}
