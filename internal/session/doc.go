// Package session
// Author: momentics <momentics@gmail.com>
//
// Device session lifecycle. The barrier driver requires every thread joining
// a synchronization to use the same open file, so the client keeps exactly
// one channel per process: opened by the first allocation or query, closed
// when the last holder releases it.
package session
