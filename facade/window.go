// File: facade/window.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import (
	"fmt"

	"github.com/momentics/hwbarrier/api"
)

// Window is a barrier window assigned to one PE for one descriptor.
// Only Client.Assign produces a usable Window; the zero value must never
// be synced.
type Window struct {
	index int8
	bd    api.Descriptor
	ok    bool
}

func newWindow(bd api.Descriptor, index int8) Window {
	return Window{index: index, bd: bd, ok: true}
}

// Index returns the hardware window register number.
func (w Window) Index() int { return int(w.index) }

// Descriptor returns the blade the window was assigned on.
func (w Window) Descriptor() api.Descriptor { return w.bd }

// Valid reports whether w was produced by an assignment.
func (w Window) Valid() bool { return w.ok }

func (w Window) String() string {
	if !w.ok {
		return "bw(invalid)"
	}
	return fmt.Sprintf("bw(%d on %s)", w.index, w.bd)
}
