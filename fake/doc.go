// Package fake
// Author: momentics <momentics@gmail.com>
//
// In-process simulator of the hardware barrier arbiter. A Node models the
// CMGs, blades and windows of one machine; each Process on it is an
// api.Backend with its own channels, and Thread stands in for an OS thread
// with a CPU mask. The Node also serves the sysfs diagnostics view, so
// tests can check that every resource is free after a run.
package fake
