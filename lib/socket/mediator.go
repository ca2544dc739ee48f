// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// maxMediatorReply bounds the mediator's status line.
const maxMediatorReply = 256

// DialMediator connects to a VSOCK peer through a mediator listening on
// a Unix socket at path. The exchange is line-oriented:
//
//	-> CONNECT <cid> <port>\n
//	<- OK [detail]\n
//
// After the OK line the Unix stream carries the VSOCK stream verbatim.
// Any other reply is returned as an error quoting the mediator. The
// reply is consumed byte by byte so no payload following it is lost.
func DialMediator(ctx context.Context, path string, contextID, port uint32) (net.Conn, error) {
	var dialer net.Dialer
	connection, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("mediator %s: %w", path, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		connection.SetDeadline(deadline)
	}

	if err := mediatorHandshake(connection, contextID, port); err != nil {
		connection.Close()
		return nil, fmt.Errorf("mediator %s: %w", path, err)
	}

	connection.SetDeadline(time.Time{})
	return connection, nil
}

func mediatorHandshake(connection io.ReadWriter, contextID, port uint32) error {
	if _, err := fmt.Fprintf(connection, "CONNECT %d %d\n", contextID, port); err != nil {
		return fmt.Errorf("sending CONNECT: %w", err)
	}

	reply, err := readLine(connection, maxMediatorReply)
	if err != nil {
		return fmt.Errorf("reading reply: %w", err)
	}
	if reply != "OK" && !strings.HasPrefix(reply, "OK ") {
		return fmt.Errorf("connect to cid %d port %d refused: %q", contextID, port, reply)
	}
	return nil
}

// readLine reads up to and excluding '\n', one byte at a time.
func readLine(reader io.Reader, limit int) (string, error) {
	var line []byte
	var single [1]byte
	for len(line) < limit {
		if _, err := io.ReadFull(reader, single[:]); err != nil {
			if err == io.EOF && len(line) > 0 {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		if single[0] == '\n' {
			return strings.TrimSuffix(string(line), "\r"), nil
		}
		line = append(line, single[0])
	}
	return "", fmt.Errorf("reply exceeds %d bytes", limit)
}
