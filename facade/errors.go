// File: facade/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Mapping of arbiter replies onto the library error codes.

package facade

import (
	"errors"

	"github.com/momentics/hwbarrier/api"
	"golang.org/x/sys/unix"
)

type request int

const (
	reqAlloc request = iota
	reqFree
	reqAssign
	reqUnassign
	reqPEInfo
)

// classify turns a raw arbiter error into an *api.Error for op. Errors that
// already carry a code keep it; bare errnos are mapped per request.
func classify(op string, req request, err error) error {
	var ae *api.Error
	if errors.As(err, &ae) {
		out := *ae
		if out.Op == "" {
			out.Op = op
		}
		return &out
	}
	var errno unix.Errno
	errors.As(err, &errno)
	if errno == unix.EFAULT {
		return api.NewError(op, api.ErrCodeTransport, err)
	}

	code := api.ErrCodeTransport
	switch req {
	case reqAlloc:
		switch errno {
		case unix.EINVAL:
			code = api.ErrCodeInvalidMask
		case unix.EBUSY, unix.ENOMEM:
			code = api.ErrCodeResourceExhausted
		}
	case reqFree:
		switch errno {
		case unix.EINVAL:
			code = api.ErrCodeNotAllocated
		case unix.EPERM:
			code = api.ErrCodeInUse
		}
	case reqAssign:
		switch errno {
		case unix.EPERM:
			code = api.ErrCodeTornDown
		case unix.EBUSY:
			code = api.ErrCodeWindowBusy
		case unix.EINVAL:
			code = api.ErrCodeInvalidArgument
		}
	case reqUnassign:
		switch errno {
		case unix.EPERM:
			code = api.ErrCodeTornDown
		case unix.EINVAL:
			code = api.ErrCodeNotAssigned
		}
	case reqPEInfo:
		code = api.ErrCodeQueryFailed
	}
	return api.NewError(op, code, err)
}
