// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package socket is the socket factory: it turns an [addrspec.Spec]
// into a listening or connected socket.
//
// [Listen] binds a listener for TCP, TCP6, UDS and (on Linux) VSOCK
// specs. [Dial] connects to any kind, including VSOCKMULT, which
// reaches a VSOCK peer through a mediator Unix socket (see
// [DialMediator] for the handshake). Kinds the platform cannot serve
// fail with [ErrUnsupported]; VSOCKMULT as a listener fails with
// [ErrConnectOnly].
//
// [Detach] and [File] move a socket out of the Go runtime's network
// poller: Detach yields a raw descriptor the caller owns exclusively
// (used by the relay engine), File yields an *os.File suitable for
// exec.Cmd.ExtraFiles (used by the dispatcher to hand a connection to
// a worker process). Both close the original net.Conn.
package socket
