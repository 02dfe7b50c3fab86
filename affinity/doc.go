// Package affinity
// Author: momentics <momentics@gmail.com>
//
// Thread pinning and CPU mask helpers. The barrier facility only exists on
// Linux, so the package targets Linux and builds on golang.org/x/sys/unix.
package affinity
