// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch accepts connections and hands each one to an
// isolated worker that relays it to the target.
//
// A [Dispatcher] owns the listener. For every accepted connection it
// builds a [Handoff] (target addrspec, relay strategy, buffer size,
// connection id, log settings) and passes it with the connection to a
// [Spawner]. The dispatcher never touches the connection's bytes and
// never waits for a worker: it releases its reference as soon as the
// spawner returns and goes back to Accept. A worker's failure, be it a
// connect error, an I/O error or a crash, stays inside that worker.
//
// Two spawners exist:
//
//   - [ProcessSpawner] re-executes the current binary in worker mode.
//     The accepted socket is inherited as fd 3 ([WorkerFD]) and the
//     handoff is written CBOR-encoded to the child's stdin. The child
//     runs in its own process group so terminal signals aimed at the
//     dispatcher do not reach it, and it is reaped asynchronously.
//   - [GoroutineSpawner] runs the worker in a goroutine with panic
//     recovery. It shares the dispatcher's address space, so a fatal
//     runtime error still takes everything down; it exists for tests
//     and for hosts where re-exec is undesirable.
//
// Worker mode is three calls: [ReadHandoff] from stdin,
// [InheritedConnection] to claim fd 3, and [RunWorker] to connect to
// the target and run the relay to completion.
//
// When the context passed to [Dispatcher.Run] is cancelled the listener
// is closed and Run returns nil. Process workers keep running until
// their relays finish; goroutine workers are waited for.
package dispatch
