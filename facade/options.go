// File: facade/options.go
// Package facade defines functional options for the Client.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import (
	"github.com/momentics/hwbarrier/api"
	"github.com/momentics/hwbarrier/control"
	"github.com/sirupsen/logrus"
)

// Option customizes client initialization.
type Option func(*Client)

// WithBackend replaces the kernel device with another arbiter, e.g. a fake.Process.
func WithBackend(b api.Backend) Option {
	return func(c *Client) {
		c.backend = b
	}
}

// WithDiagnostics replaces the sysfs view of the arbiter state.
func WithDiagnostics(d api.Diagnostics) Option {
	return func(c *Client) {
		c.diag = d
	}
}

// WithLogger routes client logs to l. Its level follows the debug setting.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithConfigStore shares an existing configuration store with the client.
func WithConfigStore(cs *control.ConfigStore) Option {
	return func(c *Client) {
		c.store = cs
	}
}
