package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// OverrideFile is the name of the JSON file holding non-secret overrides.
const OverrideFile = "cortexfolio.json"

// Manager owns the live configuration. The environment supplies the base
// (including secrets); the override file is applied on top of it and can
// be edited while the process runs.
type Manager struct {
	path     string
	base     Config
	debounce time.Duration
	log      *zap.Logger

	mu       sync.RWMutex
	cfg      Config
	onChange func(Config)
	watching bool
	reload   *time.Timer
}

type managerOptions struct {
	path     string
	base     *Config
	debounce time.Duration
	logger   *zap.Logger
}

type ManagerOption func(*managerOptions)

// NewManager reads the override file over the base config, creating the
// file from the base when it does not exist yet.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	o := managerOptions{debounce: 300 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.base == nil {
		o.base = DefaultConfig()
	}
	if o.path == "" {
		o.path = filepath.Join(o.base.DataDir, OverrideFile)
	}
	if err := os.MkdirAll(filepath.Dir(o.path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	m := &Manager{path: o.path, base: *o.base, debounce: o.debounce, log: o.logger}
	cfg, err := m.readOverride()
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = m.base
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if err := writeOverride(m.path, cfg); err != nil {
			return nil, fmt.Errorf("write initial config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load config: %w", err)
	}
	m.cfg = cfg
	return m, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

// UpdateFromJSON applies a partial JSON document over the current config.
func (m *Manager) UpdateFromJSON(jsonStr string) error {
	cfg := m.Get()
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return m.Update(cfg)
}

// Update validates cfg, persists it and notifies the watcher callback.
// The file event caused by the write is absorbed by the reload comparison.
func (m *Manager) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if reflect.DeepEqual(m.Get(), cfg) {
		return nil
	}
	if err := writeOverride(m.path, cfg); err != nil {
		return err
	}
	m.apply(cfg)
	return nil
}

// Watch calls onChange whenever the override file changes on disk, until
// ctx is done. Calling it again only replaces the callback.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watching {
		m.mu.Unlock()
		return nil
	}
	m.watching = true
	m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// The directory is watched so editors that replace the file by rename
	// are still seen.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	go m.watch(ctx, watcher)
	return nil
}

func (m *Manager) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn("config watcher error", zap.Error(err))
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(m.path) {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			m.scheduleReload()
		}
	}
}

// scheduleReload debounces bursts of events into one reload.
func (m *Manager) scheduleReload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reload != nil {
		m.reload.Stop()
	}
	m.reload = time.AfterFunc(m.debounce, m.reloadFromDisk)
}

func (m *Manager) reloadFromDisk() {
	cfg, err := m.readOverride()
	switch {
	case errors.Is(err, os.ErrNotExist):
		// deleted override file: fall back to the environment
		cfg = m.base
	case err != nil:
		m.log.Warn("config reload failed", zap.String("path", m.path), zap.Error(err))
		return
	}
	if reflect.DeepEqual(m.Get(), cfg) {
		return
	}
	m.log.Info("config reloaded", zap.String("path", m.path))
	m.apply(cfg)
}

func (m *Manager) apply(cfg Config) {
	m.mu.Lock()
	m.cfg = cfg
	cb := m.onChange
	m.mu.Unlock()
	if cb != nil {
		cb(cfg)
	}
}

// readOverride decodes the override file over the base config and
// validates the result.
func (m *Manager) readOverride() (Config, error) {
	cfg := m.base
	data, err := os.ReadFile(m.path)
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", m.path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// writeOverride replaces the file atomically. Secrets carry json:"-" and
// never reach disk.
func writeOverride(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "cfg-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.path = path
		}
	}
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithInitialConfig replaces the environment-derived base config.
func WithInitialConfig(cfg *Config) ManagerOption {
	return func(o *managerOptions) {
		o.base = cfg
	}
}

func WithLogger(l *zap.Logger) ManagerOption {
	return func(o *managerOptions) {
		o.logger = l
	}
}
