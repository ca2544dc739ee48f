// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net"
	"os"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/catsock/lib/addrspec"
)

var (
	// ErrUnsupported is returned for transports this platform cannot provide.
	ErrUnsupported = errors.New("transport not supported on this platform")

	// ErrConnectOnly is returned when a connect-only kind is used as a listener.
	ErrConnectOnly = errors.New("transport is connect-only")
)

// contextIDAny is VMADDR_CID_ANY.
const contextIDAny = math.MaxUint32

// Listen creates a listener for spec.
//
// For UDS, a stale socket file at the path is removed first; regular
// files are never removed. The returned listener unlinks the socket
// file when closed.
func Listen(spec addrspec.Spec) (net.Listener, error) {
	if !spec.Kind().CanListen() {
		return nil, fmt.Errorf("listen %s: %w", spec, ErrConnectOnly)
	}

	switch spec.Kind() {
	case addrspec.KindTCP, addrspec.KindTCP6:
		listener, err := net.Listen(tcpNetwork(spec.Kind()), net.JoinHostPort(spec.Arg(0), spec.Arg(1)))
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", spec, err)
		}
		return listener, nil

	case addrspec.KindUnix:
		path := spec.Arg(0)
		if path == "" {
			return nil, fmt.Errorf("listen %s: empty socket path", spec)
		}
		if err := removeStaleSocket(path); err != nil {
			return nil, fmt.Errorf("listen %s: %w", spec, err)
		}
		listener, err := net.Listen("unix", path)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", spec, err)
		}
		return listener, nil

	case addrspec.KindVSock:
		contextID, port, err := vsockAddress(spec.Arg(0), spec.Arg(1))
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", spec, err)
		}
		listener, err := listenVSock(contextID, port)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", spec, err)
		}
		return listener, nil
	}

	return nil, fmt.Errorf("listen %s: unknown kind %s", spec, spec.Kind())
}

// Dial connects to spec. The context bounds connection establishment
// only; it has no effect on the returned connection.
func Dial(ctx context.Context, spec addrspec.Spec) (net.Conn, error) {
	var dialer net.Dialer

	switch spec.Kind() {
	case addrspec.KindTCP, addrspec.KindTCP6:
		connection, err := dialer.DialContext(ctx, tcpNetwork(spec.Kind()), net.JoinHostPort(spec.Arg(0), spec.Arg(1)))
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", spec, err)
		}
		return connection, nil

	case addrspec.KindUnix:
		connection, err := dialer.DialContext(ctx, "unix", spec.Arg(0))
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", spec, err)
		}
		return connection, nil

	case addrspec.KindVSock:
		contextID, port, err := vsockAddress(spec.Arg(0), spec.Arg(1))
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", spec, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("connect %s: %w", spec, err)
		}
		connection, err := dialVSock(contextID, port)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", spec, err)
		}
		return connection, nil

	case addrspec.KindVSockMediator:
		contextID, port, err := vsockAddress(spec.Arg(1), spec.Arg(2))
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", spec, err)
		}
		connection, err := DialMediator(ctx, spec.Arg(0), contextID, port)
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", spec, err)
		}
		return connection, nil
	}

	return nil, fmt.Errorf("connect %s: unknown kind %s", spec, spec.Kind())
}

func tcpNetwork(kind addrspec.Kind) string {
	if kind == addrspec.KindTCP6 {
		return "tcp6"
	}
	return "tcp4"
}

// vsockAddress parses a context id and port. The context id may be
// "any" or "-1" for VMADDR_CID_ANY.
func vsockAddress(contextIDText, portText string) (uint32, uint32, error) {
	var contextID uint32
	switch contextIDText {
	case "any", "-1":
		contextID = contextIDAny
	default:
		parsed, err := strconv.ParseUint(contextIDText, 0, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid vsock context id %q: %w", contextIDText, err)
		}
		contextID = uint32(parsed)
	}

	port, err := strconv.ParseUint(portText, 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid vsock port %q: %w", portText, err)
	}
	return contextID, uint32(port), nil
}

// removeStaleSocket removes path if it is a socket. A missing file is
// not an error; any other kind of file is left alone and reported.
func removeStaleSocket(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	return nil
}

// Detach transfers ownership of the connection's descriptor to the
// caller. The descriptor is duplicated with close-on-exec set and the
// original connection is closed; the duplicate refers to the same open
// socket, so closing the net.Conn does not shut the stream down.
func Detach(connection net.Conn) (int, error) {
	syscallConnection, ok := connection.(syscall.Conn)
	if !ok {
		return -1, fmt.Errorf("detach: %T does not expose a descriptor", connection)
	}
	rawConnection, err := syscallConnection.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("detach: %w", err)
	}

	duplicate := -1
	var duplicateError error
	controlError := rawConnection.Control(func(fd uintptr) {
		duplicate, duplicateError = unix.FcntlInt(fd, unix.F_DUPFD_CLOEXEC, 0)
	})
	if controlError != nil {
		return -1, fmt.Errorf("detach: %w", controlError)
	}
	if duplicateError != nil {
		return -1, fmt.Errorf("detach: duplicating descriptor: %w", duplicateError)
	}

	connection.Close()
	return duplicate, nil
}

// File detaches the connection and wraps the descriptor in an *os.File
// named after the connection's remote address.
func File(connection net.Conn) (*os.File, error) {
	name := "socket"
	if remote := connection.RemoteAddr(); remote != nil {
		name = remote.String()
	}
	fd, err := Detach(connection)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), name), nil
}
