// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Interest is a set of readiness conditions on one descriptor.
type Interest uint8

const (
	// ReadReady means a non-blocking read would make progress.
	ReadReady Interest = 1 << iota
	// WriteReady means a non-blocking write would make progress.
	WriteReady
)

// Has reports whether every condition in other is in i.
func (i Interest) Has(other Interest) bool { return i&other == other && other != 0 }

func (i Interest) String() string {
	var parts []string
	if i.Has(ReadReady) {
		parts = append(parts, "read")
	}
	if i.Has(WriteReady) {
		parts = append(parts, "write")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Request asks the multiplexer to watch FD for Interest.
type Request struct {
	FD       int
	Interest Interest
}

// Event reports which requested conditions are ready on FD. Ready never
// contains conditions that were not requested.
type Event struct {
	FD    int
	Ready Interest
}

// Multiplexer waits for readiness on a small set of descriptors. The
// request set is supplied whole on every call; descriptors absent from
// requests must not produce events.
type Multiplexer interface {
	// Wait blocks until at least one request is ready, appends the
	// ready events to events and returns the extended slice. An EINTR
	// is returned to the caller unchanged.
	Wait(requests []Request, events []Event) ([]Event, error)

	// Close releases the multiplexer's own descriptors, if any.
	Close() error
}

// poller is a Multiplexer over poll(2). It holds no kernel state.
type poller struct {
	descriptors []unix.PollFd
	requested   []Interest
}

// NewPoller returns a Multiplexer backed by poll(2).
func NewPoller() Multiplexer {
	return &poller{}
}

func (p *poller) Wait(requests []Request, events []Event) ([]Event, error) {
	if len(requests) == 0 {
		return events, fmt.Errorf("poll: no requests")
	}

	p.descriptors = p.descriptors[:0]
	p.requested = p.requested[:0]
	for _, request := range requests {
		var flags int16
		if request.Interest.Has(ReadReady) {
			flags |= unix.POLLIN
		}
		if request.Interest.Has(WriteReady) {
			flags |= unix.POLLOUT
		}
		p.descriptors = append(p.descriptors, unix.PollFd{Fd: int32(request.FD), Events: flags})
		p.requested = append(p.requested, request.Interest)
	}

	if _, err := unix.Poll(p.descriptors, -1); err != nil {
		return events, err
	}

	for i, descriptor := range p.descriptors {
		if descriptor.Revents == 0 {
			continue
		}
		var ready Interest
		if descriptor.Revents&unix.POLLIN != 0 {
			ready |= ReadReady
		}
		if descriptor.Revents&unix.POLLOUT != 0 {
			ready |= WriteReady
		}
		// Hangup and error conditions are surfaced by the next I/O
		// call, so report them as whatever was asked for.
		if descriptor.Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			ready |= p.requested[i]
		}
		ready &= p.requested[i]
		if ready != 0 {
			events = append(events, Event{FD: int(descriptor.Fd), Ready: ready})
		}
	}
	return events, nil
}

func (p *poller) Close() error { return nil }
