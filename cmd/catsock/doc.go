// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Catsock relays stream connections between socket transports.
//
//	catsock [flags] <listen_addrspec> <connect_addrspec>
//
// It listens on the first address. For every accepted connection it
// starts an isolated worker that connects to the second address and
// forwards bytes in both directions until both sides have closed.
// Half-closes pass through: when one peer finishes sending, the other
// peer sees end of stream while the reverse direction keeps flowing.
//
// Addresses are KIND:arg[:arg...]:
//
//	TCP:host:port             IPv4; empty host listens on all addresses
//	TCP6:host:port            IPv6; [::1] brackets a host containing colons
//	UDS:path                  Unix domain stream socket
//	VSOCK:cid:port            virtual machine socket (Linux only)
//	VSOCKMULT:path:cid:port   VSOCK reached through a mediator socket
//	                          (connect only)
//
// By default each connection is handled by a child process: catsock
// re-executes itself with the hidden --worker flag, passing the
// accepted socket as fd 3 and a CBOR handoff on stdin. --isolation
// goroutine handles connections in-process instead.
//
// Bytes move with splice(2) through kernel pipes on Linux and with a
// buffered read/write loop elsewhere; --strategy overrides the choice.
//
// An optional YAML or JSONC config file (--config, or CATSOCK_CONFIG)
// supplies the same settings; explicit flags and positional addresses
// take precedence.
//
// Exit status is 0 on success and for --help and --version, 2 for usage
// errors, and 1 for setup failures and fatal relay errors.
package main
