// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package addrspec parses textual endpoint descriptors of the form
//
//	KIND:arg1[:arg2[:arg3]]
//
// into a [Spec]: a transport [Kind] plus an ordered, arity-checked list
// of string arguments. The five kinds and their arguments are:
//
//	TCP:host:port                IPv4 TCP
//	TCP6:host:port               IPv6 TCP; host may be a bracketed literal ([::1])
//	UDS:path                     Unix domain stream socket
//	VSOCK:cid:port               virtual machine socket (Linux only)
//	VSOCKMULT:path:cid:port      VSOCK reached through a mediator Unix socket (connect only)
//
// Kind names are case-sensitive. The argument count must equal the
// kind's arity exactly; specs with missing or extra arguments are
// rejected, never truncated or padded.
//
// A tail segment beginning with "[" is read up to the matching "]" as a
// single argument with the brackets stripped, so colons inside an IPv6
// literal are not separators. At most one bracketed segment is allowed.
//
// [Parse] is pure: it performs no I/O and touches no global state.
// Whether a kind can be listened on or only connected to is reported by
// [Kind.CanListen]; platform support is the socket factory's concern.
//
// This package has no dependencies on other packages in this module.
package addrspec
