// Package config owns the build configuration record: the engine editor
// executable, the project descriptor, and the build flavor. Validity is
// checked lazily at the start of each operation, never enforced on write.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const DefaultBuildFlavor = "Development"

// BuildConfig is the single persistent record.
type BuildConfig struct {
	EnginePath  string `yaml:"engine_path"`
	ProjectPath string `yaml:"project_path"`
	BuildFlavor string `yaml:"build_flavor"`
}

// Validation failures, in the order Validate checks them.
var (
	ErrEngineUnset    = errors.New("engine path is not set")
	ErrEngineMissing  = errors.New("engine path does not exist")
	ErrProjectUnset   = errors.New("project path is not set")
	ErrProjectMissing = errors.New("project path does not exist")
)

// Manager holds the current configuration and persists it to a YAML file.
// Readers always get a copy; there is no aliasing of the live record.
type Manager struct {
	mu       sync.Mutex
	cfg      BuildConfig
	path     string
	onChange func(BuildConfig)
}

// NewManager loads the config file at path if it exists. An empty path keeps
// the manager in-memory only.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &m.cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	m.applyEnv()
	if m.cfg.BuildFlavor == "" {
		m.cfg.BuildFlavor = DefaultBuildFlavor
	}
	return m, nil
}

func (m *Manager) applyEnv() {
	if v := os.Getenv("ENGINECTL_ENGINE_PATH"); v != "" {
		m.cfg.EnginePath = v
	}
	if v := os.Getenv("ENGINECTL_PROJECT_PATH"); v != "" {
		m.cfg.ProjectPath = v
	}
	if v := os.Getenv("ENGINECTL_BUILD_FLAVOR"); v != "" {
		m.cfg.BuildFlavor = v
	}
}

// OnChange registers the host callback invoked after every Update.
func (m *Manager) OnChange(fn func(BuildConfig)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() BuildConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Update merges the non-empty fields of partial into the current config,
// persists the result, and notifies the host.
func (m *Manager) Update(partial BuildConfig) error {
	m.mu.Lock()
	if partial.EnginePath != "" {
		m.cfg.EnginePath = partial.EnginePath
	}
	if partial.ProjectPath != "" {
		m.cfg.ProjectPath = partial.ProjectPath
	}
	if partial.BuildFlavor != "" {
		m.cfg.BuildFlavor = partial.BuildFlavor
	}
	cfg := m.cfg
	fn := m.onChange
	m.mu.Unlock()

	if err := m.save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if fn != nil {
		fn(cfg)
	}
	return nil
}

func (m *Manager) save(cfg BuildConfig) error {
	if m.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

// Validate checks the engine path first, then the project path. The first
// failure wins.
func (m *Manager) Validate() error {
	cfg := m.Get()
	if cfg.EnginePath == "" {
		return ErrEngineUnset
	}
	if _, err := os.Stat(cfg.EnginePath); err != nil {
		return ErrEngineMissing
	}
	if cfg.ProjectPath == "" {
		return ErrProjectUnset
	}
	if _, err := os.Stat(cfg.ProjectPath); err != nil {
		return ErrProjectMissing
	}
	return nil
}
