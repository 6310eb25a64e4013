package reactive

import (
	"context"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
)

// ValueSource reports which layer currently determines a
// ConfigProperty's effective value.
type ValueSource int

const (
	// SourceDefault means neither config nor runtime has a value.
	SourceDefault ValueSource = iota
	// SourceConfig means config.toml supplied a value and no runtime
	// override is active.
	SourceConfig
	// SourceCustom means a runtime value was set directly (e.g. via the
	// CLI or IPC) while no config-layer value exists.
	SourceCustom
	// SourceOverride means a runtime value was set on top of an
	// existing config-layer value.
	SourceOverride
)

func (s ValueSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceConfig:
		return "config"
	case SourceCustom:
		return "custom"
	case SourceOverride:
		return "override"
	default:
		return "unknown"
	}
}

// ConfigProperty is a three-layer reactive value: a compiled default,
// an optional value loaded from config.toml, and an optional runtime
// override. The effective value is runtime, else config, else default.
//
// Reload of the config layer is two-phase: ResetConfigLayer clears the
// staged config value without recomputing the effective value (so
// in-flight reads keep seeing the old effective value during a reload
// window), and CommitConfigReload recomputes afterward. This mirrors
// wayle-common's property/config.rs exactly.
type ConfigProperty[T any] struct {
	mu        sync.RWMutex
	def       T
	config    *T
	runtime   *T
	effective *Property[T]
}

// NewConfigProperty creates a ConfigProperty whose effective value
// starts at def.
func NewConfigProperty[T any](def T) *ConfigProperty[T] {
	return &ConfigProperty[T]{
		def:       def,
		effective: New(def),
	}
}

// Get returns the current effective value.
func (c *ConfigProperty[T]) Get() T {
	return c.effective.Get()
}

// Default returns the compiled default value.
func (c *ConfigProperty[T]) Default() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.def
}

// ConfigValue returns the staged config-layer value, if any.
func (c *ConfigProperty[T]) ConfigValue() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.config == nil {
		var zero T
		return zero, false
	}
	return *c.config, true
}

// RuntimeValue returns the staged runtime-layer value, if any.
func (c *ConfigProperty[T]) RuntimeValue() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.runtime == nil {
		var zero T
		return zero, false
	}
	return *c.runtime, true
}

// Source reports which layer currently determines the effective value.
func (c *ConfigProperty[T]) Source() ValueSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hasRuntime := c.runtime != nil
	hasConfig := c.config != nil
	switch {
	case hasRuntime && hasConfig:
		return SourceOverride
	case hasRuntime && !hasConfig:
		return SourceCustom
	case !hasRuntime && hasConfig:
		return SourceConfig
	default:
		return SourceDefault
	}
}

// Set installs a runtime override and recomputes the effective value.
func (c *ConfigProperty[T]) Set(v T) {
	c.mu.Lock()
	c.runtime = &v
	c.mu.Unlock()
	c.recompute()
}

// ClearRuntime removes the runtime override and recomputes.
func (c *ConfigProperty[T]) ClearRuntime() {
	c.mu.Lock()
	c.runtime = nil
	c.mu.Unlock()
	c.recompute()
}

// SetConfig installs a config-layer value directly (outside the staged
// reload flow) and recomputes.
func (c *ConfigProperty[T]) SetConfig(v T) {
	c.mu.Lock()
	c.config = &v
	c.mu.Unlock()
	c.recompute()
}

// ClearConfig removes the config-layer value and recomputes.
func (c *ConfigProperty[T]) ClearConfig() {
	c.mu.Lock()
	c.config = nil
	c.mu.Unlock()
	c.recompute()
}

// ResetConfigLayer stages the removal of the config-layer value
// WITHOUT recomputing the effective value. Call CommitConfigReload
// once every property in the schema has been reset and re-applied so
// the effective recompute happens exactly once per reload pass.
func (c *ConfigProperty[T]) ResetConfigLayer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = nil
}

// CommitConfigReload recomputes the effective value from the current
// layers. Call after ResetConfigLayer + ApplyConfigLayer for every
// property touched by a reload.
func (c *ConfigProperty[T]) CommitConfigReload() {
	c.recompute()
}

// ApplyConfigLayer decodes raw TOML bytes for this single key into the
// config layer. Decode failures are left to the caller to log; the
// prior config-layer value (if any) is left untouched on failure so a
// malformed reload doesn't clobber a previously good value.
func (c *ConfigProperty[T]) ApplyConfigLayer(raw []byte) error {
	var v T
	if _, err := toml.Decode(string(raw), &v); err != nil {
		return fmt.Errorf("decode config layer: %w", err)
	}
	c.mu.Lock()
	c.config = &v
	c.mu.Unlock()
	return nil
}

// ApplyRuntimeLayer decodes raw TOML bytes for this single key into the
// runtime layer and recomputes the effective value. Used to load a
// persisted override out of runtime.toml at startup. Unlike the
// config layer, the runtime layer has no staged reload window: a
// successful decode takes effect immediately, same as Set. Decode
// failures are left to the caller to log; the prior runtime-layer
// value (if any) is left untouched on failure.
func (c *ConfigProperty[T]) ApplyRuntimeLayer(raw []byte) error {
	var v T
	if _, err := toml.Decode(string(raw), &v); err != nil {
		return fmt.Errorf("decode runtime layer: %w", err)
	}
	c.mu.Lock()
	c.runtime = &v
	c.mu.Unlock()
	c.recompute()
	return nil
}

// ExtractRuntimeValues returns the runtime-layer value for
// persistence to runtime.toml, and whether one is set.
func (c *ConfigProperty[T]) ExtractRuntimeValues() (T, bool) {
	return c.RuntimeValue()
}

func (c *ConfigProperty[T]) recompute() {
	c.mu.RLock()
	var effective T
	switch {
	case c.runtime != nil:
		effective = *c.runtime
	case c.config != nil:
		effective = *c.config
	default:
		effective = c.def
	}
	c.mu.RUnlock()
	c.effective.Set(effective)
}

// Watch streams the effective value: current, then one per change.
func (c *ConfigProperty[T]) Watch(ctx context.Context) <-chan T {
	return c.effective.Watch(ctx)
}
