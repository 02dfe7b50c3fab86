package adapters_test

import (
	"testing"

	"github.com/momentics/hwbarrier/adapters"
	"github.com/momentics/hwbarrier/control"
)

func TestControlAdapterBasic(t *testing.T) {
	ctrl := adapters.NewControlAdapter(nil)
	cfg := ctrl.GetConfig()
	if cfg[control.KeyDevicePath] != control.DefaultDevicePath {
		t.Errorf("device path = %v", cfg[control.KeyDevicePath])
	}
	called := false
	ctrl.OnReload(func() { called = true })
	if err := ctrl.SetConfig(map[string]any{control.KeyDebug: true}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("Reload hook not called")
	}
	if !ctrl.Config().Bool(control.KeyDebug) {
		t.Error("SetConfig did not apply")
	}
}

func TestControlAdapterStats(t *testing.T) {
	ctrl := adapters.NewControlAdapter(nil)
	ctrl.Metrics().Add(control.MetricBladeAlloc, 2)
	ctrl.RegisterDebugProbe("answer", func() any { return 42 })
	stats := ctrl.Stats()
	if stats[control.MetricBladeAlloc] != int64(2) {
		t.Errorf("counter = %v", stats[control.MetricBladeAlloc])
	}
	if stats["debug.answer"] != 42 {
		t.Errorf("probe = %v", stats["debug.answer"])
	}
	if _, ok := stats["debug.platform.arch"]; !ok {
		t.Error("platform probes missing")
	}
}
