//go:build linux && arm64 && cgo
// +build linux,arm64,cgo

// File: internal/hwsync/sync_arm64.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A64FX barrier window registers accessed from EL0 via cgo inline assembly.

package hwsync

/*
// BST := !LBSY, then wait for events until LBSY toggles to the new BST.
#define FHWB_SYNC(reg) do {                          \
	unsigned long bst, lbsy;                         \
	__asm__ __volatile__(                            \
		"mrs %0, " reg "\n\t"                        \
		"mvn %0, %0\n\t"                             \
		"and %0, %0, #1\n\t"                         \
		"msr " reg ", %0\n\t"                        \
		"sevl\n\t"                                   \
		"1:\n\t"                                     \
		"wfe\n\t"                                    \
		"mrs %1, " reg "\n\t"                        \
		"and %1, %1, #1\n\t"                         \
		"cmp %0, %1\n\t"                             \
		"b.ne 1b\n\t"                                \
		: "=&r"(bst), "=&r"(lbsy)                    \
		:                                            \
		: "cc", "memory");                           \
} while (0)

static int go_fhwb_sync(int window) {
	switch (window) {
	case 0:
		FHWB_SYNC("s3_3_c15_c15_0");
		return 0;
	case 1:
		FHWB_SYNC("s3_3_c15_c15_1");
		return 0;
	case 2:
		FHWB_SYNC("s3_3_c15_c15_2");
		return 0;
	case 3:
		FHWB_SYNC("s3_3_c15_c15_3");
		return 0;
	default:
		return -1;
	}
}
*/
import "C"

import "github.com/sirupsen/logrus"

// Available reports whether this build can drive the window registers.
const Available = true

// Sync performs one synchronization on window of the calling PE.
//
// The window must be assigned to this PE: touching an unassigned window
// register raises SIGILL and the process dies. There is no timeout.
func Sync(window int) {
	if C.go_fhwb_sync(C.int(window)) != 0 {
		logrus.WithField("window", window).Error("hwsync: window number is invalid")
	}
}
