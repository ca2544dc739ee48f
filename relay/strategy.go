// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"
	"os"
)

// DefaultBufferSize is the nominal per-direction stage size. Buffers
// are rounded down to a whole number of pages.
const DefaultBufferSize = 1024 * 1024

// ErrUnsupported is returned when a strategy cannot run on this platform.
var ErrUnsupported = errors.New("relay strategy not supported on this platform")

// Strategy selects how bytes move from a source descriptor to a
// destination descriptor and which readiness facility the loop waits
// on. All strategies share the channel state machine in Relay and must
// be observably identical.
type Strategy interface {
	// Name is the strategy's configuration name.
	Name() string

	newTransfer() (transfer, error)
	newMultiplexer() (Multiplexer, error)
}

// transfer is the per-direction staging area of a strategy.
type transfer interface {
	// fill moves one chunk from source into the empty stage and
	// returns its length. Zero means end of input.
	fill(source int) (int, error)

	// drain writes staged bytes [from, to) to destination and returns
	// how many were accepted.
	drain(destination int, from, to int) (int, error)

	close() error
}

// BufferedCopy is the portable strategy: one user-space buffer per
// direction, read(2) and write(2), and the native readiness facility.
type BufferedCopy struct {
	// BufferSize is the per-direction buffer size in bytes. Zero means
	// DefaultBufferSize. It is rounded down to whole pages, minimum one.
	BufferSize int
}

// Name implements Strategy.
func (BufferedCopy) Name() string { return "buffered" }

func (b BufferedCopy) newTransfer() (transfer, error) {
	return &bufferTransfer{buffer: make([]byte, PageAlign(b.BufferSize))}, nil
}

func (BufferedCopy) newMultiplexer() (Multiplexer, error) {
	return NewMultiplexer()
}

// KernelAssistedCopy moves bytes through a kernel pipe per direction
// with splice(2), so payload never enters process memory. It waits with
// poll(2). Only available on Linux.
type KernelAssistedCopy struct {
	// PipeSize is the requested pipe capacity. Zero means
	// DefaultBufferSize. The kernel may clamp it; failure to resize is
	// not an error.
	PipeSize int
}

// Name implements Strategy.
func (KernelAssistedCopy) Name() string { return "splice" }

func (k KernelAssistedCopy) newTransfer() (transfer, error) {
	return newPipeTransfer(k.PipeSize)
}

func (KernelAssistedCopy) newMultiplexer() (Multiplexer, error) {
	return NewPoller(), nil
}

// DefaultStrategy returns the splice strategy where the platform
// supports it and the buffered strategy elsewhere.
func DefaultStrategy() Strategy {
	if spliceSupported {
		return KernelAssistedCopy{}
	}
	return BufferedCopy{}
}

// StrategyByName resolves a configuration name: "auto", "buffered" or
// "splice". size is the buffer or pipe size passed to the strategy.
func StrategyByName(name string, size int) (Strategy, error) {
	switch name {
	case "", "auto":
		if spliceSupported {
			return KernelAssistedCopy{PipeSize: size}, nil
		}
		return BufferedCopy{BufferSize: size}, nil
	case "buffered":
		return BufferedCopy{BufferSize: size}, nil
	case "splice":
		if !spliceSupported {
			return nil, fmt.Errorf("strategy %q: %w", name, ErrUnsupported)
		}
		return KernelAssistedCopy{PipeSize: size}, nil
	}
	return nil, fmt.Errorf("unknown relay strategy %q (want auto, buffered or splice)", name)
}

// PageAlign rounds size down to a whole number of pages. Zero or
// negative sizes select DefaultBufferSize; the result is at least one
// page.
func PageAlign(size int) int {
	if size <= 0 {
		size = DefaultBufferSize
	}
	pageSize := os.Getpagesize()
	aligned := size / pageSize * pageSize
	if aligned < pageSize {
		aligned = pageSize
	}
	return aligned
}
