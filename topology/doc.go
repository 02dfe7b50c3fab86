// Package topology
// Author: momentics <momentics@gmail.com>
//
// Read-only view of the barrier facility: the hwinfo fact sheet and the
// per-CMG blade/window bitmaps the driver publishes in sysfs. Nothing here
// needs an open device session.
package topology
