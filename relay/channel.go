// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

// channel is the state of one direction of a relay.
type channel struct {
	name        string
	source      int
	destination int
	transfer    transfer

	// filled is the length of the staged chunk; written is how much of
	// it has reached the destination. filled == 0 means the stage is
	// empty and a new read may be issued.
	filled  int
	written int

	sourceClosed      bool
	destinationClosed bool

	// armed is the condition requested for this channel in the current
	// iteration. A readiness event acts on a channel only if it asked.
	armed Interest

	delivered int64
	reverse   *channel
}

func (c *channel) wantsRead() bool {
	return c.filled == 0 && !c.sourceClosed
}

func (c *channel) wantsWrite() bool {
	return c.filled > 0 && !c.destinationClosed
}
