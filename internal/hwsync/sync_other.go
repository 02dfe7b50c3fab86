//go:build !(linux && arm64 && cgo)
// +build !linux !arm64 !cgo

// File: internal/hwsync/sync_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Builds without access to the barrier window registers.

package hwsync

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// Available reports whether this build can drive the window registers.
const Available = false

// Sync terminates the process: there is no software fallback for the
// hardware barrier.
func Sync(window int) {
	logrus.WithField("window", window).Fatalf("hwsync: hardware barrier not available on %s/%s (cgo required)",
		runtime.GOOS, runtime.GOARCH)
}
