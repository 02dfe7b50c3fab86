// File: api/control.go
// Package api defines the Control and Debug interfaces.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Debug exposes runtime introspection of the client.
type Debug interface {
	// DumpState emits a snapshot of all registered probes.
	DumpState() map[string]any
	// RegisterDebugProbe adds or replaces a named probe.
	RegisterDebugProbe(name string, fn func() any)
}

// Control manages dynamic config and runtime counters of a client.
type Control interface {
	Debug
	// GetConfig returns a copy of the active configuration.
	GetConfig() map[string]any
	// SetConfig merges cfg into the configuration and fires reload hooks.
	SetConfig(cfg map[string]any) error
	// Stats merges metrics and debug probes into one map.
	Stats() map[string]any
	// OnReload registers a hook run after every SetConfig.
	OnReload(fn func())
}
