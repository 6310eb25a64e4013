// Package wconfig loads Wayle's layered TOML configuration and wires
// it into the reactive.ConfigProperty schema, and watches config.toml
// / runtime.toml for changes with fsnotify to drive the two-phase
// reload flow. Adapted from the teacher's internal/config/config.go
// (search-path resolution and Load) re-expressed over TOML via
// github.com/BurntSushi/toml instead of YAML, per spec.md §6.
package wconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// DefaultSearchPaths returns the config file search order: an explicit
// path (e.g. from -config) is checked first by FindConfig, then
// ./config.toml, ~/.config/wayle/config.toml, /etc/wayle/config.toml.
func DefaultSearchPaths() []string {
	paths := []string{"config.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "wayle", "config.toml"))
	}
	paths = append(paths, "/etc/wayle/config.toml")
	return paths
}

// FindConfig locates a config file, preferring an explicit path.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// RuntimeConfigPath returns the path to runtime.toml alongside the
// given config.toml path (same directory).
func RuntimeConfigPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "runtime.toml")
}

// SaveRuntime encodes values (one entry per dotted config key whose
// reactive.ConfigProperty has a runtime override set, e.g.
// "weather.location") as nested TOML tables and writes it to path,
// persisting the runtime-override layer across restarts per spec.md
// §6's "runtime overrides runtime.toml". An empty values map still
// writes an empty file, clearing any override a prior run persisted.
func SaveRuntime(path string, values map[string]any) error {
	nested := Raw{}
	for key, v := range values {
		cur := nested
		parts := splitPath(key)
		for _, part := range parts[:len(parts)-1] {
			next, ok := cur[part].(Raw)
			if !ok {
				next = Raw{}
				cur[part] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = v
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]any(nested)); err != nil {
		return fmt.Errorf("encode runtime overrides: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Raw is a decoded TOML document kept around so individual
// reactive.ConfigProperty fields can be applied from it by dotted key
// path, mirroring ApplyConfigLayer/ApplyRuntimeLayer in the original
// implementation's config.rs.
type Raw map[string]any

// Load reads and decodes a TOML file into a Raw document. A missing
// file is not an error: it is treated as an empty document so a
// freshly-installed Wayle runs entirely on compiled defaults.
func Load(path string) (Raw, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Raw{}, nil
	}
	if err != nil {
		return nil, err
	}
	var raw Raw
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return raw, nil
}

// Lookup walks a dotted path ("bar.modules.clock.format") through a
// decoded Raw document and returns the leaf value, if present.
func (r Raw) Lookup(path string) (any, bool) {
	cur := any(map[string]any(r))
	for _, part := range splitPath(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}

// Watcher watches a config file for changes and invokes onChange for
// every Write or Create event on it; a burst of events is not
// debounced, so onChange may run several times for one save. Grounded
// on other_examples/manifests/davidolrik-overseer's fsnotify-based
// config.Manager.StartWatching pattern, and on hyprvoice's daemon.go
// onConfigReload callback shape (stop dependent work, reload, restart).
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	onChange func()
	logger   *slog.Logger
}

// NewWatcher creates a Watcher for path. Call Start to begin watching.
func NewWatcher(path string, onChange func(), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{fsw: fsw, path: filepath.Clean(path), onChange: onChange, logger: logger}, nil
}

// Start runs the watch loop until stopCh is closed.
func (w *Watcher) Start(stopCh <-chan struct{}) {
	go func() {
		for {
			select {
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != w.path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.logger.Debug("config file changed", "path", ev.Name, "op", ev.Op.String())
				w.onChange()
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", "error", err)
			case <-stopCh:
				w.fsw.Close()
				return
			}
		}
	}()
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
