// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

// StreamPair creates a connected AF_UNIX stream pair. The first result
// is a raw descriptor owned by the caller (typically handed to code
// under test, which closes it). The second is the peer end, closed at
// test cleanup.
func StreamPair(t *testing.T) (int, *net.UnixConn) {
	t.Helper()
	descriptors, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}

	peerFile := os.NewFile(uintptr(descriptors[1]), "stream-pair-peer")
	peerConn, err := net.FileConn(peerFile)
	peerFile.Close()
	if err != nil {
		unix.Close(descriptors[0])
		t.Fatalf("wrapping socketpair peer: %v", err)
	}
	t.Cleanup(func() { peerConn.Close() })

	return descriptors[0], peerConn.(*net.UnixConn)
}
