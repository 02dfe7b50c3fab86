// Package hwsync
// Author: momentics <momentics@gmail.com>
//
// The synchronization primitive of the hardware barrier: a tight poll on the
// window status register local to the calling core. No lock and no device
// traffic are involved.
//
// FATAL CONTRACT: syncing a window that the calling PE has not been assigned
// is not an error the library can report. The CPU raises SIGILL and the Go
// runtime aborts the process. Callers must track assignment themselves.
package hwsync
