// File: internal/session/session.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reference-counted device session shared by every thread of the process.

package session

import (
	"sync"

	"github.com/momentics/hwbarrier/api"
	"github.com/sirupsen/logrus"
)

// Session owns the single channel to the arbiter. The channel is open iff
// Holders() > 0. The mutex guards only the open/close bookkeeping; requests
// issued on the channel run without it.
type Session struct {
	mu      sync.Mutex
	backend api.Backend
	ch      api.Channel
	holders int
	log     *logrus.Entry
}

// New creates a closed session over backend.
func New(backend api.Backend, log *logrus.Entry) *Session {
	return &Session{backend: backend, log: log}
}

// Acquire takes a reference on the channel, opening it for the first holder.
// On failure the holder count is left unchanged.
func (s *Session) Acquire() (api.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holders == 0 {
		s.log.Debug("open device channel")
		ch, err := s.backend.Open()
		if err != nil {
			return nil, api.NewError("session.acquire", api.ErrCodeChannelUnavailable, err)
		}
		s.ch = ch
	}
	s.holders++
	return s.ch, nil
}

// Release drops a reference taken by Acquire and closes the channel with
// the last one. A close failure is logged only.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.holders == 0 {
		panic("session: release without acquire")
	}
	s.holders--
	if s.holders > 0 {
		return
	}
	s.log.Debug("close device channel")
	if err := s.ch.Close(); err != nil {
		s.log.WithError(err).Error("close device channel")
	}
	s.ch = nil
}

// Current returns the open channel without taking a reference.
func (s *Session) Current() (api.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holders == 0 {
		return nil, api.NewError("session.current", api.ErrCodeNoSession, nil)
	}
	return s.ch, nil
}

// Holders returns the current reference count.
func (s *Session) Holders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holders
}
