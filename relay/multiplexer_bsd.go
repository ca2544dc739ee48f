// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package relay

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// kqueuer is a kqueue(2) Multiplexer. Filters are registered with
// EV_DISPATCH, so each fires at most once per request and is re-armed
// only when requested again.
type kqueuer struct {
	fd      int
	changes []unix.Kevent_t
	buffer  [4]unix.Kevent_t
}

// NewMultiplexer returns the platform's native readiness Multiplexer.
func NewMultiplexer() (Multiplexer, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("kqueue: %w", err)
	}
	unix.CloseOnExec(fd)
	return &kqueuer{fd: fd}, nil
}

func (k *kqueuer) Wait(requests []Request, events []Event) ([]Event, error) {
	k.changes = k.changes[:0]
	for _, request := range requests {
		if request.Interest.Has(ReadReady) {
			var change unix.Kevent_t
			unix.SetKevent(&change, request.FD, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE|unix.EV_DISPATCH)
			k.changes = append(k.changes, change)
		}
		if request.Interest.Has(WriteReady) {
			var change unix.Kevent_t
			unix.SetKevent(&change, request.FD, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ENABLE|unix.EV_DISPATCH)
			k.changes = append(k.changes, change)
		}
	}

	count, err := unix.Kevent(k.fd, k.changes, k.buffer[:], nil)
	if err != nil {
		return events, err
	}

	for _, raw := range k.buffer[:count] {
		if raw.Flags&unix.EV_ERROR != 0 {
			return events, fmt.Errorf("kevent on %d: %w", raw.Ident, unix.Errno(raw.Data))
		}
		fd := int(raw.Ident)
		var ready Interest
		switch raw.Filter {
		case unix.EVFILT_READ:
			ready = ReadReady
		case unix.EVFILT_WRITE:
			ready = WriteReady
		}
		// A filter left enabled from an earlier request may still fire.
		matched := false
		for _, request := range requests {
			if request.FD == fd && request.Interest.Has(ready) {
				matched = true
				break
			}
		}
		if matched {
			events = append(events, Event{FD: fd, Ready: ready})
		}
	}
	return events, nil
}

func (k *kqueuer) Close() error {
	return unix.Close(k.fd)
}
