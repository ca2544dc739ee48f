// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"net"

	"github.com/mdlayher/vsock"
)

func listenVSock(contextID, port uint32) (net.Listener, error) {
	listener, err := vsock.ListenContextID(contextID, port, nil)
	if err != nil {
		return nil, err
	}
	return listener, nil
}

func dialVSock(contextID, port uint32) (net.Conn, error) {
	connection, err := vsock.Dial(contextID, port, nil)
	if err != nil {
		return nil, err
	}
	return connection, nil
}
