// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package relay

// NewMultiplexer returns a poll(2) Multiplexer on platforms without a
// native facility wired up.
func NewMultiplexer() (Multiplexer, error) {
	return NewPoller(), nil
}
