package session_test

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/momentics/hwbarrier/api"
	"github.com/momentics/hwbarrier/internal/session"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type stubChannel struct {
	api.Channel
	b *stubBackend
}

func (c *stubChannel) Close() error {
	c.b.mu.Lock()
	c.b.closes++
	c.b.mu.Unlock()
	return nil
}

type stubBackend struct {
	mu      sync.Mutex
	opens   int
	closes  int
	openErr error
}

func (b *stubBackend) Open() (api.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opens++
	return &stubChannel{b: b}, nil
}

func (b *stubBackend) Sync(api.Thread, int) {}
func (b *stubBackend) NumCPUs() int         { return 1 }

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSession_OpenOnFirstCloseOnLast(t *testing.T) {
	b := &stubBackend{}
	s := session.New(b, quietLog())

	if _, err := s.Current(); !errors.Is(err, api.ErrNoSession) {
		t.Fatalf("Current on closed session: %v", err)
	}
	ch1, err := s.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	ch2, err := s.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if ch1 != ch2 {
		t.Error("holders got different channels")
	}
	if b.opens != 1 || s.Holders() != 2 {
		t.Errorf("opens=%d holders=%d", b.opens, s.Holders())
	}
	s.Release()
	if b.closes != 0 {
		t.Error("closed while a holder remains")
	}
	if cur, err := s.Current(); err != nil || cur != ch1 {
		t.Errorf("Current = %v, %v", cur, err)
	}
	s.Release()
	if b.closes != 1 || s.Holders() != 0 {
		t.Errorf("closes=%d holders=%d", b.closes, s.Holders())
	}
}

func TestSession_OpenFailureKeepsCount(t *testing.T) {
	b := &stubBackend{openErr: unix.ENOENT}
	s := session.New(b, quietLog())
	_, err := s.Acquire()
	if !errors.Is(err, api.ErrChannelUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, unix.ENOENT) {
		t.Errorf("errno not preserved: %v", err)
	}
	if s.Holders() != 0 {
		t.Errorf("holders = %d", s.Holders())
	}
}

func TestSession_UnpairedReleasePanics(t *testing.T) {
	s := session.New(&stubBackend{}, quietLog())
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	s.Release()
}

func TestSession_ConcurrentHolders(t *testing.T) {
	b := &stubBackend{}
	s := session.New(b, quietLog())
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := s.Acquire(); err != nil {
					t.Error(err)
					return
				}
				s.Release()
			}
		}()
	}
	wg.Wait()
	if s.Holders() != 0 {
		t.Errorf("holders = %d", s.Holders())
	}
	if b.opens != b.closes {
		t.Errorf("opens=%d closes=%d", b.opens, b.closes)
	}
}
