// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"github.com/momentics/hwbarrier/api"
	"github.com/momentics/hwbarrier/control"
)

// ControlAdapter joins a config store, a metrics registry and debug probes.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

var _ api.Control = (*ControlAdapter)(nil)

// NewControlAdapter wraps cs, or a fresh default store when cs is nil, and
// registers the platform probes for its device path.
func NewControlAdapter(cs *control.ConfigStore) *ControlAdapter {
	if cs == nil {
		cs = control.NewConfigStore()
	}
	adapter := &ControlAdapter{
		config:  cs,
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug, cs.String(control.KeyDevicePath))
	return adapter
}

// Config returns the underlying store.
func (c *ControlAdapter) Config() *control.ConfigStore { return c.config }

// Metrics returns the underlying registry.
func (c *ControlAdapter) Metrics() *control.MetricsRegistry { return c.metrics }

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}
func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	c.config.SetConfig(cfg)
	return nil
}
func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any)
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	return combined
}
func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}
func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}
func (c *ControlAdapter) DumpState() map[string]any {
	return c.debug.DumpState()
}
