// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// control_test.go: Unit tests for config store, env loading, metrics and probes.
package control_test

import (
	"testing"

	"github.com/momentics/hwbarrier/control"
	"github.com/sirupsen/logrus"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestConfigStore_Defaults(t *testing.T) {
	cs := control.NewConfigStore()
	if cs.Bool(control.KeyDebug) {
		t.Error("debug should be off by default")
	}
	if got := cs.String(control.KeyDevicePath); got != control.DefaultDevicePath {
		t.Errorf("device path = %q, want %q", got, control.DefaultDevicePath)
	}
	if got := cs.String(control.KeySysfsRoot); got != control.DefaultSysfsRoot {
		t.Errorf("sysfs root = %q, want %q", got, control.DefaultSysfsRoot)
	}
}

func TestLoadEnv_DebugPresenceEnables(t *testing.T) {
	cs := control.NewConfigStore()
	control.LoadEnv(cs, envMap(map[string]string{
		control.EnvDebug:      "",
		control.EnvDevicePath: "/tmp/hwb",
	}))
	if !cs.Bool(control.KeyDebug) {
		t.Error("empty FUJITSU_HWBLIB_DEBUG must still enable debug")
	}
	if got := cs.String(control.KeyDevicePath); got != "/tmp/hwb" {
		t.Errorf("device path = %q", got)
	}
	if got := cs.String(control.KeySysfsRoot); got != control.DefaultSysfsRoot {
		t.Errorf("sysfs root overwritten: %q", got)
	}
}

func TestLoadEnv_AbsentKeepsDefaults(t *testing.T) {
	cs := control.NewConfigStore()
	fired := 0
	cs.OnReload(func() { fired++ })
	control.LoadEnv(cs, envMap(nil))
	if cs.Bool(control.KeyDebug) {
		t.Error("debug enabled without env")
	}
	if fired != 0 {
		t.Errorf("reload fired %d times with empty env", fired)
	}
}

func TestConfigStore_ReloadSynchronous(t *testing.T) {
	cs := control.NewConfigStore()
	var seen bool
	cs.OnReload(func() { seen = cs.Bool(control.KeyDebug) })
	cs.SetConfig(map[string]any{control.KeyDebug: "true"})
	if !seen {
		t.Error("listener did not observe new value")
	}
	snap := cs.GetSnapshot()
	snap[control.KeyDebug] = false
	if !cs.Bool(control.KeyDebug) {
		t.Error("snapshot mutation leaked into store")
	}
}

func TestMetricsRegistry_Counters(t *testing.T) {
	mr := control.NewMetricsRegistry()
	mr.Add(control.MetricBladeAlloc, 1)
	mr.Add(control.MetricBladeAlloc, 2)
	if got := mr.Counter(control.MetricBladeAlloc); got != 3 {
		t.Errorf("counter = %d, want 3", got)
	}
	snap := mr.GetSnapshot()
	if snap[control.MetricBladeAlloc] != int64(3) {
		t.Errorf("snapshot = %v", snap[control.MetricBladeAlloc])
	}
	if _, ok := snap[control.MetricUpdated]; !ok {
		t.Error("missing update timestamp")
	}
}

func TestDebugProbes_Dump(t *testing.T) {
	dp := control.NewDebugProbes()
	control.RegisterPlatformProbes(dp, "/nonexistent/hwb")
	dp.RegisterProbe("test_probe", func() any { return "ok" })
	state := dp.DumpState()
	if state["test_probe"] != "ok" {
		t.Errorf("probe missing: %v", state)
	}
	if state["platform.hwb_device"] != false {
		t.Errorf("device probe = %v, want false", state["platform.hwb_device"])
	}
	if n := len(dp.Names()); n != 5 {
		t.Errorf("names = %d, want 5", n)
	}
}

func TestNewLogger_Level(t *testing.T) {
	l := control.NewLogger(false)
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v", l.GetLevel())
	}
	control.SetDebug(l, true)
	if l.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v", l.GetLevel())
	}
}
