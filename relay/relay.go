// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// Relay forwards bytes between two descriptors it exclusively owns.
// A Relay is used once: Run drives it to completion and closes every
// descriptor it holds.
type Relay struct {
	near     int
	far      int
	strategy string
	logger   *slog.Logger

	nearToFar   *channel
	farToNear   *channel
	multiplexer Multiplexer

	// shutdown and closeDescriptor are the descriptor primitives;
	// tests substitute them.
	shutdown        func(fd, how int) error
	closeDescriptor func(fd int) error

	closed bool
}

// New takes ownership of near and far, sets both non-blocking and
// prepares the strategy's per-direction stages. On error every
// descriptor, including near and far, has already been closed.
//
// A nil logger uses slog.Default().
func New(near, far int, strategy Strategy, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strategy == nil {
		strategy = DefaultStrategy()
	}

	fail := func(err error, closers ...func() error) (*Relay, error) {
		for _, closer := range closers {
			closer()
		}
		unix.Close(near)
		unix.Close(far)
		return nil, err
	}

	if err := unix.SetNonblock(near, true); err != nil {
		return fail(fmt.Errorf("relay: setting near descriptor non-blocking: %w", err))
	}
	if err := unix.SetNonblock(far, true); err != nil {
		return fail(fmt.Errorf("relay: setting far descriptor non-blocking: %w", err))
	}

	nearToFarTransfer, err := strategy.newTransfer()
	if err != nil {
		return fail(fmt.Errorf("relay: %s stage: %w", strategy.Name(), err))
	}
	farToNearTransfer, err := strategy.newTransfer()
	if err != nil {
		return fail(fmt.Errorf("relay: %s stage: %w", strategy.Name(), err), nearToFarTransfer.close)
	}
	multiplexer, err := strategy.newMultiplexer()
	if err != nil {
		return fail(fmt.Errorf("relay: %w", err), nearToFarTransfer.close, farToNearTransfer.close)
	}

	relay := newRelay(near, far, nearToFarTransfer, farToNearTransfer, multiplexer, logger)
	relay.strategy = strategy.Name()
	return relay, nil
}

// newRelay assembles a Relay from already-constructed parts.
func newRelay(near, far int, nearToFar, farToNear transfer, multiplexer Multiplexer, logger *slog.Logger) *Relay {
	relay := &Relay{
		near:            near,
		far:             far,
		logger:          logger,
		multiplexer:     multiplexer,
		shutdown:        unix.Shutdown,
		closeDescriptor: unix.Close,
		nearToFar: &channel{
			name:        "near->far",
			source:      near,
			destination: far,
			transfer:    nearToFar,
		},
		farToNear: &channel{
			name:        "far->near",
			source:      far,
			destination: near,
			transfer:    farToNear,
		},
	}
	relay.nearToFar.reverse = relay.farToNear
	relay.farToNear.reverse = relay.nearToFar
	return relay
}

// Run forwards until neither direction has work left, then closes the
// relay. It returns nil on orderly completion and the first fatal I/O
// or readiness error otherwise.
func (r *Relay) Run() error {
	defer r.Close()

	channels := [2]*channel{r.nearToFar, r.farToNear}
	requests := make([]Request, 0, 2)
	events := make([]Event, 0, 4)

	for {
		requests = r.arm(channels, requests[:0])
		if len(requests) == 0 {
			r.logger.Debug("relay finished",
				"strategy", r.strategy,
				"near_to_far_bytes", r.nearToFar.delivered,
				"far_to_near_bytes", r.farToNear.delivered,
			)
			return nil
		}

		ready, err := r.multiplexer.Wait(requests, events[:0])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("relay: waiting for readiness: %w", err)
		}

		for _, event := range ready {
			for _, current := range channels {
				if err := r.step(current, event); err != nil {
					return err
				}
			}
		}
	}
}

// arm records on each channel the one condition it is waiting for and
// returns the merged per-descriptor request set.
func (r *Relay) arm(channels [2]*channel, requests []Request) []Request {
	for _, current := range channels {
		current.armed = 0
		switch {
		case current.wantsRead():
			current.armed = ReadReady
			requests = addRequest(requests, current.source, ReadReady)
		case current.wantsWrite():
			current.armed = WriteReady
			requests = addRequest(requests, current.destination, WriteReady)
		}
	}
	return requests
}

func addRequest(requests []Request, fd int, interest Interest) []Request {
	for i := range requests {
		if requests[i].FD == fd {
			requests[i].Interest |= interest
			return requests
		}
	}
	return append(requests, Request{FD: fd, Interest: interest})
}

// step performs the single transfer operation event grants to current,
// if any. The channel is disarmed afterwards so one iteration never
// performs two operations on it.
func (r *Relay) step(current *channel, event Event) error {
	switch {
	case current.armed == ReadReady && event.FD == current.source && event.Ready.Has(ReadReady):
		current.armed = 0
		if !current.wantsRead() {
			return nil
		}
		return r.read(current)
	case current.armed == WriteReady && event.FD == current.destination && event.Ready.Has(WriteReady):
		current.armed = 0
		if !current.wantsWrite() {
			return nil
		}
		return r.write(current)
	}
	return nil
}

func (r *Relay) read(current *channel) error {
	count, err := current.transfer.fill(current.source)
	if err != nil {
		if transient(err) {
			return nil
		}
		return fmt.Errorf("relay: %s read: %w", current.name, err)
	}

	if count == 0 {
		// End of input: let the destination's peer see end of stream
		// while the other direction carries on.
		current.sourceClosed = true
		if err := r.shutdown(current.destination, unix.SHUT_WR); err != nil {
			r.logger.Debug("half-close failed", "direction", current.name, "error", err)
		}
		r.logger.Debug("source closed", "direction", current.name)
		return nil
	}

	current.filled = count
	current.written = 0
	return nil
}

func (r *Relay) write(current *channel) error {
	count, err := current.transfer.drain(current.destination, current.written, current.filled)
	if err != nil {
		if transient(err) {
			return nil
		}
		return fmt.Errorf("relay: %s write: %w", current.name, err)
	}

	if count == 0 {
		// The destination accepts nothing more. Nothing will be written
		// to it or read from it again.
		current.sourceClosed = true
		current.destinationClosed = true
		current.filled = 0
		current.written = 0
		current.reverse.sourceClosed = true
		if err := r.shutdown(current.destination, unix.SHUT_RDWR); err != nil {
			r.logger.Debug("shutdown failed", "direction", current.name, "error", err)
		}
		r.logger.Debug("destination refused write", "direction", current.name)
		return nil
	}

	current.written += count
	current.delivered += int64(count)
	if current.written == current.filled {
		current.filled = 0
		current.written = 0
	}
	return nil
}

// Close releases the descriptors, stages and multiplexer. It is safe to
// call more than once; only the first call has effect.
func (r *Relay) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return errors.Join(
		r.closeDescriptor(r.near),
		r.closeDescriptor(r.far),
		r.nearToFar.transfer.close(),
		r.farToNear.transfer.close(),
		r.multiplexer.Close(),
	)
}

func transient(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}
