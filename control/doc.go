// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, logging, runtime counters and debug introspection for hwbarrier.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads with environment overlay and reload listeners
//   - logrus logger setup driven by the FUJITSU_HWBLIB_DEBUG toggle
//   - Operation counters
//   - Debug probe registration and platform probes
package control
