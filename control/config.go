// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with environment loading and reload propagation.

package control

import (
	"strconv"
	"sync"
)

// Configuration keys understood by the client.
const (
	KeyDebug      = "debug"
	KeyDevicePath = "device.path"
	KeySysfsRoot  = "sysfs.root"
)

// Environment variables mapped onto configuration keys.
const (
	EnvDebug      = "FUJITSU_HWBLIB_DEBUG"
	EnvDevicePath = "FUJITSU_HWBLIB_DEVICE"
	EnvSysfsRoot  = "FUJITSU_HWBLIB_SYSFS"
)

// Default locations created by the fujitsu_hwb driver.
const (
	DefaultDevicePath = "/dev/fujitsu_hwb"
	DefaultSysfsRoot  = "/sys/class/misc/fujitsu_hwb"
)

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a store holding the library defaults.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: map[string]any{
			KeyDebug:      false,
			KeyDevicePath: DefaultDevicePath,
			KeySysfsRoot:  DefaultSysfsRoot,
		},
		listeners: make([]func(), 0),
	}
}

// LoadEnv overlays environment settings onto cs. The debug toggle is
// enabled by the mere presence of its variable, whatever the value.
func LoadEnv(cs *ConfigStore, lookup func(string) (string, bool)) {
	cfg := make(map[string]any)
	if _, ok := lookup(EnvDebug); ok {
		cfg[KeyDebug] = true
	}
	if v, ok := lookup(EnvDevicePath); ok && v != "" {
		cfg[KeyDevicePath] = v
	}
	if v, ok := lookup(EnvSysfsRoot); ok && v != "" {
		cfg[KeySysfsRoot] = v
	}
	if len(cfg) > 0 {
		cs.SetConfig(cfg)
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	copy := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		copy[k] = v
	}
	return copy
}

// String returns the value of key as a string, or "" when unset.
func (cs *ConfigStore) String(key string) string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	s, _ := cs.config[key].(string)
	return s
}

// Bool returns the value of key as a bool. Strings are parsed with strconv.
func (cs *ConfigStore) Bool(key string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	switch v := cs.config[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	default:
		return false
	}
}

// SetConfig merges new values and runs reload listeners.
// Listeners run synchronously after the lock is dropped, so they may read the store.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
