// control/logging.go
// Author: momentics <momentics@gmail.com>
//
// Logger construction for the library and the simulator.

package control

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a stderr text logger.
// Debug messages are emitted only when debug is set.
func NewLogger(debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	SetDebug(l, debug)
	return l
}

// SetDebug toggles debug level on l.
func SetDebug(l *logrus.Logger, debug bool) {
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
}

// Component returns an entry carrying the component field used by all log lines.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}
