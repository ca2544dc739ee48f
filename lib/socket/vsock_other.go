// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package socket

import "net"

func listenVSock(contextID, port uint32) (net.Listener, error) {
	return nil, ErrUnsupported
}

func dialVSock(contextID, port uint32) (net.Conn, error) {
	return nil, ErrUnsupported
}
