// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/catsock/lib/addrspec"
	"github.com/bureau-foundation/catsock/lib/testutil"
)

func mustParse(t *testing.T, text string) addrspec.Spec {
	t.Helper()
	spec, err := addrspec.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return spec
}

func TestListenAndDial_TCP(t *testing.T) {
	listener, err := Listen(mustParse(t, "TCP:127.0.0.1:0"))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		connection, acceptError := listener.Accept()
		if acceptError != nil {
			close(accepted)
			return
		}
		accepted <- connection
	}()

	port := listener.Addr().(*net.TCPAddr).Port
	connection, err := Dial(context.Background(), mustParse(t, "TCP:127.0.0.1:"+strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer connection.Close()

	serverSide := testutil.RequireReceive(t, accepted, 5*time.Second, "waiting for accept")
	defer serverSide.Close()

	if _, err := connection.Write([]byte("ping")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buffer := make([]byte, 4)
	if _, err := io.ReadFull(serverSide, buffer); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(buffer) != "ping" {
		t.Fatalf("got %q, want ping", buffer)
	}
}

func TestListen_TCP6Loopback(t *testing.T) {
	listener, err := Listen(mustParse(t, "TCP6:[::1]:0"))
	if err != nil {
		t.Skipf("IPv6 loopback unavailable: %v", err)
	}
	defer listener.Close()

	address := listener.Addr().(*net.TCPAddr)
	if address.IP.To4() != nil {
		t.Fatalf("expected an IPv6 address, got %s", address)
	}
}

func TestListen_UnixRemovesStaleSocket(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "stale.sock")

	stale, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("creating stale socket: %v", err)
	}
	// Leave the file behind the way a crashed process would.
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	stale.Close()

	listener, err := Listen(mustParse(t, "UDS:"+socketPath))
	if err != nil {
		t.Fatalf("Listen over stale socket: %v", err)
	}
	listener.Close()

	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Fatalf("expected socket file removed on close, stat error: %v", err)
	}
}

func TestListen_UnixRefusesRegularFile(t *testing.T) {
	path := filepath.Join(testutil.SocketDir(t), "regular")
	if err := os.WriteFile(path, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Listen(mustParse(t, "UDS:"+path)); err == nil {
		t.Fatal("expected Listen to refuse a regular file")
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "keep me" {
		t.Fatalf("regular file was modified: %q, %v", data, err)
	}
}

func TestListen_MediatorIsConnectOnly(t *testing.T) {
	_, err := Listen(mustParse(t, "VSOCKMULT:/tmp/mediator.sock:3:1024"))
	if !errors.Is(err, ErrConnectOnly) {
		t.Fatalf("expected ErrConnectOnly, got %v", err)
	}
}

func TestDial_InvalidVSockPort(t *testing.T) {
	_, err := Dial(context.Background(), mustParse(t, "VSOCK:3:notaport"))
	if err == nil || !strings.Contains(err.Error(), "invalid vsock port") {
		t.Fatalf("expected invalid port error, got %v", err)
	}
}

// fakeMediator accepts one connection, checks the CONNECT line, replies
// with reply and then immediately writes trailer on the same stream.
func fakeMediator(t *testing.T, reply, trailer string) (string, <-chan string) {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "mediator.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("fakeMediator: listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	requests := make(chan string, 1)
	go func() {
		connection, acceptError := listener.Accept()
		if acceptError != nil {
			return
		}
		defer connection.Close()
		line, readError := bufio.NewReader(connection).ReadString('\n')
		if readError != nil {
			return
		}
		requests <- line
		io.WriteString(connection, reply+"\n"+trailer)
	}()
	return socketPath, requests
}

func TestDialMediator_HandshakeKeepsPayload(t *testing.T) {
	socketPath, requests := fakeMediator(t, "OK 1073741824", "payload")

	connection, err := Dial(context.Background(), mustParse(t, "VSOCKMULT:"+socketPath+":3:5000"))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer connection.Close()

	request := testutil.RequireReceive(t, requests, 5*time.Second, "waiting for CONNECT")
	if request != "CONNECT 3 5000\n" {
		t.Fatalf("mediator got %q, want %q", request, "CONNECT 3 5000\n")
	}

	payload, err := io.ReadAll(connection)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(payload) != "payload" {
		t.Fatalf("payload = %q, want %q", payload, "payload")
	}
}

func TestDialMediator_Refused(t *testing.T) {
	socketPath, _ := fakeMediator(t, "ERR no such port", "")

	_, err := DialMediator(context.Background(), socketPath, 3, 5000)
	if err == nil {
		t.Fatal("expected refusal error")
	}
	if !strings.Contains(err.Error(), "ERR no such port") {
		t.Fatalf("error does not quote mediator reply: %v", err)
	}
}

func TestDetach_TransfersOwnership(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "detach.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		connection, acceptError := listener.Accept()
		if acceptError == nil {
			accepted <- connection
		}
	}()

	client, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	serverSide := testutil.RequireReceive(t, accepted, 5*time.Second, "waiting for accept")
	defer serverSide.Close()

	fd, err := Detach(client)
	if err != nil {
		t.Fatalf("Detach: %v", err)
	}
	defer unix.Close(fd)

	// The net.Conn is closed but the stream survives on the duplicate.
	if _, err := client.Write([]byte("x")); err == nil {
		t.Fatal("expected write on detached net.Conn to fail")
	}
	if _, err := unix.Write(fd, []byte("still open")); err != nil {
		t.Fatalf("write on detached descriptor: %v", err)
	}
	buffer := make([]byte, len("still open"))
	if _, err := io.ReadFull(serverSide, buffer); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(buffer) != "still open" {
		t.Fatalf("got %q", buffer)
	}
}
