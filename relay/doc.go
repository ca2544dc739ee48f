// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay forwards bytes bidirectionally between two connected
// stream descriptors until both directions are closed.
//
// A [Relay] owns two raw descriptors, "near" (accepted by the listener)
// and "far" (connected to the target), and one channel per direction.
// Each channel holds at most one undelivered chunk: a new read from the
// channel's source is never issued while bytes from the previous read
// are still pending delivery. That single rule is the backpressure
// mechanism; memory per direction is bounded by one stage, not by the
// volume transferred.
//
// The loop is single-threaded. Each iteration computes, per channel,
// whether it wants its source readable (stage empty, source open) or
// its destination writable (stage non-empty, destination open), merges
// those into one request per descriptor, and blocks in a [Multiplexer].
// Each reported readiness performs exactly one transfer step for the
// channel that asked for it. When no channel wants anything, Run
// returns nil.
//
// Closure is structural:
//
//   - end of input on a source shuts down the write side of that
//     channel's destination, so the peer sees end of stream while the
//     other direction keeps flowing;
//   - a zero-length write means the destination accepts nothing more:
//     the destination is shut down in both directions, the channel is
//     finished, and the reverse channel stops reading from it.
//
// EAGAIN and EINTR are retried. Every other error ends Run with that
// error; the caller is expected to run one Relay per isolated worker.
//
// Two interchangeable [Strategy] implementations move the bytes:
// [BufferedCopy] reads into and writes from a page-aligned user buffer
// per direction, waiting on the platform's native readiness facility
// (epoll on Linux, kqueue on the BSDs and Darwin). [KernelAssistedCopy]
// splices through a kernel pipe per direction so payload never enters
// process memory, waiting with poll(2); it is Linux-only.
// [DefaultStrategy] picks the splice strategy where it exists.
package relay
