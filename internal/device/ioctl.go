// File: internal/device/ioctl.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ioctl request layout of the fujitsu_hwb driver.

package device

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	iocWrite = 1
	iocRead  = 2

	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	ioctlMagic = 'F'
)

// bbCtl mirrors struct fujitsu_hwb_ioc_bb_ctl.
type bbCtl struct {
	CMG    uint8
	BB     uint8
	_      [2]uint8
	Size   uint32
	Pemask *unix.CPUSet
}

// bwCtl mirrors struct fujitsu_hwb_ioc_bw_ctl.
type bwCtl struct {
	BB     uint8
	Window int8
}

// peInfo mirrors struct fujitsu_hwb_ioc_pe_info.
type peInfo struct {
	CMG uint8
	PPE uint8
}

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<iocDirShift | size<<iocSizeShift | ioctlMagic<<iocTypeShift | nr<<iocNRShift
}

// Request numbers.
var (
	IocBBAlloc    = ioc(iocRead|iocWrite, 0x00, unsafe.Sizeof(bbCtl{}))
	IocBWAssign   = ioc(iocRead|iocWrite, 0x01, unsafe.Sizeof(bwCtl{}))
	IocBWUnassign = ioc(iocWrite, 0x02, unsafe.Sizeof(bwCtl{}))
	IocBBFree     = ioc(iocWrite, 0x03, unsafe.Sizeof(bbCtl{}))
	IocGetPEInfo  = ioc(iocRead, 0x04, unsafe.Sizeof(peInfo{}))
)

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
