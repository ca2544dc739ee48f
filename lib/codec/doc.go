// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds catsock's CBOR configuration.
//
// CBOR is the format of the one internal protocol catsock has: the
// handoff record a dispatcher writes to a worker process's stdin,
// describing the target to connect to and how to relay. Everything
// user-facing (flags, config files) is text.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Types implementing encoding.TextMarshaler, such as addrspec.Spec,
// are carried as text strings and restored with UnmarshalText.
//
//	encoder := codec.NewEncoder(stdin)
//	err := encoder.Encode(handoff)
//
// Internal-only types use `cbor` struct tags.
package codec
