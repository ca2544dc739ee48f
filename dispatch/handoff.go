// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/catsock/lib/addrspec"
	"github.com/bureau-foundation/catsock/lib/codec"
)

// WorkerFD is the descriptor on which a worker process inherits the
// accepted connection.
const WorkerFD = 3

// Handoff is everything a worker needs besides the connection itself.
type Handoff struct {
	// ConnectionID is the dispatcher's sequence number for the
	// connection, starting at 1. Workers tag their log records with it.
	ConnectionID int64 `cbor:"connection_id"`

	// Target is where the worker connects.
	Target addrspec.Spec `cbor:"target"`

	// Strategy is a relay.StrategyByName name; empty means auto.
	Strategy string `cbor:"strategy,omitempty"`

	// BufferSize is the per-direction stage size; zero is the default.
	BufferSize int `cbor:"buffer_size,omitempty"`

	// LogLevel and LogFormat configure a worker process's logger.
	LogLevel  string `cbor:"log_level,omitempty"`
	LogFormat string `cbor:"log_format,omitempty"`
}

// WriteHandoff encodes handoff to w.
func WriteHandoff(w io.Writer, handoff Handoff) error {
	if err := codec.NewEncoder(w).Encode(handoff); err != nil {
		return fmt.Errorf("encoding handoff: %w", err)
	}
	return nil
}

// ReadHandoff decodes one handoff from r and checks it names a target.
func ReadHandoff(r io.Reader) (Handoff, error) {
	var handoff Handoff
	if err := codec.NewDecoder(r).Decode(&handoff); err != nil {
		if errors.Is(err, io.EOF) {
			return Handoff{}, fmt.Errorf("reading handoff: no handoff on stdin (worker mode is started by the dispatcher)")
		}
		return Handoff{}, fmt.Errorf("reading handoff: %w", err)
	}
	if handoff.Target.IsZero() {
		return Handoff{}, fmt.Errorf("reading handoff: no target")
	}
	return handoff, nil
}

// InheritedConnection claims the connection a worker process inherited
// on WorkerFD. The descriptor is marked close-on-exec and returned raw,
// without passing through os.File, which would switch it to blocking
// mode.
func InheritedConnection() (int, error) {
	if _, err := unix.FcntlInt(uintptr(WorkerFD), unix.F_GETFD, 0); err != nil {
		return -1, fmt.Errorf("fd %d not available (worker mode is started by the dispatcher): %w", WorkerFD, err)
	}
	unix.CloseOnExec(WorkerFD)
	return WorkerFD, nil
}
