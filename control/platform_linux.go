//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific platform probes.

package control

import (
	"os"
	"runtime"

	"golang.org/x/sys/cpu"
)

// RegisterPlatformProbes sets Linux-specific debug probes. devicePath is the
// barrier device node whose presence is reported.
func RegisterPlatformProbes(dp *DebugProbes, devicePath string) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.arch", func() any {
		return runtime.GOARCH
	})
	dp.RegisterProbe("platform.arm64.sve", func() any {
		return cpu.ARM64.HasSVE
	})
	dp.RegisterProbe("platform.hwb_device", func() any {
		_, err := os.Stat(devicePath)
		return err == nil
	})
}
