// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers: fatal error
// reporting to stderr for the window before the structured logger
// exists, and the mapping from a returned error to a process exit code.
//
// catsock's exit codes:
//
//   - 0: the relay completed, or --help / --version was requested
//   - 1: setup failure, or a fatal I/O error in a worker
//   - 2: usage error (wrong argument count, malformed addrspec)
//
// Code that wants a specific code wraps its error in an [ExitError].
package process
