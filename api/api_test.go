package api_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/momentics/hwbarrier/api"
	"golang.org/x/sys/unix"
)

func TestErrorIsByCode(t *testing.T) {
	err := api.NewError("assign", api.ErrCodeWindowBusy, unix.EBUSY).WithContext("window", 2)
	if !errors.Is(err, api.ErrWindowBusy) {
		t.Error("code does not match its sentinel")
	}
	if errors.Is(err, api.ErrNotAMember) {
		t.Error("matched a different code")
	}
	if !errors.Is(err, unix.EBUSY) {
		t.Error("errno not reachable through Unwrap")
	}
	wrapped := fmt.Errorf("worker: %w", err)
	if api.CodeOf(wrapped) != api.ErrCodeWindowBusy {
		t.Errorf("CodeOf = %v", api.CodeOf(wrapped))
	}
	if api.CodeOf(errors.New("plain")) != api.ErrCodeOK {
		t.Error("plain error has a code")
	}
	msg := err.Error()
	for _, part := range []string{"assign", "barrier window busy", "device or resource busy", "window:2"} {
		if !strings.Contains(msg, part) {
			t.Errorf("%q lacks %q", msg, part)
		}
	}
}

func TestDescriptorEncoding(t *testing.T) {
	bd := api.NewDescriptor(3, 5)
	if bd.Raw() != 0x305 || bd.CMG() != 3 || bd.Blade() != 5 {
		t.Errorf("descriptor = %v raw %x", bd, bd.Raw())
	}
	if api.DescriptorFromRaw(bd.Raw()) != bd {
		t.Error("raw form does not decode to the same descriptor")
	}
	var zero api.Descriptor
	if zero.Valid() || zero.Raw() != -1 {
		t.Error("zero descriptor is valid")
	}
	for _, raw := range []int{-1, 0x10000} {
		if api.DescriptorFromRaw(raw).Valid() {
			t.Errorf("DescriptorFromRaw(%d) valid", raw)
		}
	}
}

func TestPEInfo(t *testing.T) {
	if api.InvalidPE.Valid() || api.InvalidPE.String() != "INVALID" {
		t.Error("InvalidPE reported valid")
	}
	if s := (api.PEInfo{CMG: 1, PhysicalPE: 4}).String(); s != "cmg: 1, ppe: 4" {
		t.Errorf("String = %q", s)
	}
}
