// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// epoller is a level-triggered epoll(7) Multiplexer. Registrations are
// adjusted to match each request set: descriptors no longer requested
// are removed, so a hangup on an idle descriptor cannot wake the loop.
type epoller struct {
	fd         int
	registered []registration
	wanted     []registration
	buffer     [4]unix.EpollEvent
}

// registration is one descriptor's epoll event mask. A relay has two
// descriptors, so the lists are searched linearly and reused.
type registration struct {
	fd   int
	mask uint32
}

func findRegistration(list []registration, fd int) int {
	for i := range list {
		if list[i].fd == fd {
			return i
		}
	}
	return -1
}

// NewMultiplexer returns the platform's native readiness Multiplexer.
func NewMultiplexer() (Multiplexer, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &epoller{
		fd:         fd,
		registered: make([]registration, 0, 2),
		wanted:     make([]registration, 0, 2),
	}, nil
}

func (e *epoller) Wait(requests []Request, events []Event) ([]Event, error) {
	e.wanted = e.wanted[:0]
	for _, request := range requests {
		var mask uint32
		if request.Interest.Has(ReadReady) {
			mask |= unix.EPOLLIN | unix.EPOLLRDHUP
		}
		if request.Interest.Has(WriteReady) {
			mask |= unix.EPOLLOUT
		}
		if i := findRegistration(e.wanted, request.FD); i >= 0 {
			e.wanted[i].mask |= mask
		} else {
			e.wanted = append(e.wanted, registration{fd: request.FD, mask: mask})
		}
	}

	var removeError error
	kept := e.registered[:0]
	for _, current := range e.registered {
		if findRegistration(e.wanted, current.fd) >= 0 {
			kept = append(kept, current)
			continue
		}
		if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, current.fd, nil); err != nil && removeError == nil {
			removeError = fmt.Errorf("epoll_ctl del %d: %w", current.fd, err)
		}
	}
	e.registered = kept
	if removeError != nil {
		return events, removeError
	}

	for _, want := range e.wanted {
		i := findRegistration(e.registered, want.fd)
		if i >= 0 && e.registered[i].mask == want.mask {
			continue
		}
		operation := unix.EPOLL_CTL_ADD
		if i >= 0 {
			operation = unix.EPOLL_CTL_MOD
		}
		event := unix.EpollEvent{Events: want.mask, Fd: int32(want.fd)}
		if err := unix.EpollCtl(e.fd, operation, want.fd, &event); err != nil {
			return events, fmt.Errorf("epoll_ctl %d: %w", want.fd, err)
		}
		if i >= 0 {
			e.registered[i].mask = want.mask
		} else {
			e.registered = append(e.registered, want)
		}
	}

	count, err := unix.EpollWait(e.fd, e.buffer[:], -1)
	if err != nil {
		return events, err
	}

	for _, raw := range e.buffer[:count] {
		fd := int(raw.Fd)
		var requested Interest
		for _, request := range requests {
			if request.FD == fd {
				requested |= request.Interest
			}
		}
		var ready Interest
		if raw.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
			ready |= ReadReady
		}
		if raw.Events&unix.EPOLLOUT != 0 {
			ready |= WriteReady
		}
		if raw.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ready |= requested
		}
		ready &= requested
		if ready != 0 {
			events = append(events, Event{FD: fd, Ready: ready})
		}
	}
	return events, nil
}

func (e *epoller) Close() error {
	return unix.Close(e.fd)
}
