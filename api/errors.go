// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hwbarrier library.

package api

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeInvalidMask
	ErrCodeResourceExhausted
	ErrCodeNoSession
	ErrCodeChannelUnavailable
	ErrCodeNotAllocated
	ErrCodeInUse
	ErrCodeNotBound
	ErrCodeNotAMember
	ErrCodeAlreadyAssigned
	ErrCodeWindowBusy
	ErrCodeInvalidWindow
	ErrCodeNotAssigned
	ErrCodeTornDown
	ErrCodeQueryFailed
	ErrCodeTransport
)

var codeNames = map[ErrorCode]string{
	ErrCodeOK:                 "ok",
	ErrCodeInvalidArgument:    "invalid argument",
	ErrCodeInvalidMask:        "invalid pe mask",
	ErrCodeResourceExhausted:  "resource exhausted",
	ErrCodeNoSession:          "no device session",
	ErrCodeChannelUnavailable: "device channel unavailable",
	ErrCodeNotAllocated:       "barrier blade not allocated",
	ErrCodeInUse:              "barrier blade in use",
	ErrCodeNotBound:           "caller not bound to one PE",
	ErrCodeNotAMember:         "PE is not a member of the barrier blade",
	ErrCodeAlreadyAssigned:    "PE already assigned a window",
	ErrCodeWindowBusy:         "barrier window busy",
	ErrCodeInvalidWindow:      "invalid barrier window",
	ErrCodeNotAssigned:        "PE not assigned a window",
	ErrCodeTornDown:           "barrier blade is being freed",
	ErrCodeQueryFailed:        "PE info query failed",
	ErrCodeTransport:          "device transfer fault",
}

// String returns the human-readable name of the code.
func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("error code %d", int(c))
}

// Sentinel errors, comparable with errors.Is against any *Error of the same code.
var (
	ErrInvalidArgument    = &Error{Code: ErrCodeInvalidArgument}
	ErrInvalidMask        = &Error{Code: ErrCodeInvalidMask}
	ErrResourceExhausted  = &Error{Code: ErrCodeResourceExhausted}
	ErrNoSession          = &Error{Code: ErrCodeNoSession}
	ErrChannelUnavailable = &Error{Code: ErrCodeChannelUnavailable}
	ErrNotAllocated       = &Error{Code: ErrCodeNotAllocated}
	ErrInUse              = &Error{Code: ErrCodeInUse}
	ErrNotBound           = &Error{Code: ErrCodeNotBound}
	ErrNotAMember         = &Error{Code: ErrCodeNotAMember}
	ErrAlreadyAssigned    = &Error{Code: ErrCodeAlreadyAssigned}
	ErrWindowBusy         = &Error{Code: ErrCodeWindowBusy}
	ErrInvalidWindow      = &Error{Code: ErrCodeInvalidWindow}
	ErrNotAssigned        = &Error{Code: ErrCodeNotAssigned}
	ErrTornDown           = &Error{Code: ErrCodeTornDown}
	ErrQueryFailed        = &Error{Code: ErrCodeQueryFailed}
	ErrTransport          = &Error{Code: ErrCodeTransport}
)

// Error represents a structured error with code and context.
// Err carries the underlying OS error (errno) when one exists.
type Error struct {
	Op      string
	Code    ErrorCode
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying OS error.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, cause error) *Error {
	return &Error{
		Op:      op,
		Code:    code,
		Err:     cause,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or ErrCodeOK.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeOK
}
