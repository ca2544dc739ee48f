// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/catsock/lib/codec"
	"github.com/bureau-foundation/catsock/lib/testutil"
)

func TestHandoff_WriteRead(t *testing.T) {
	original := Handoff{
		ConnectionID: 42,
		Target:       mustParse(t, "TCP6:[::1]:9000"),
		Strategy:     "splice",
		BufferSize:   1 << 16,
		LogLevel:     "debug",
		LogFormat:    "json",
	}

	var stream bytes.Buffer
	if err := WriteHandoff(&stream, original); err != nil {
		t.Fatalf("WriteHandoff: %v", err)
	}
	decoded, err := ReadHandoff(&stream)
	if err != nil {
		t.Fatalf("ReadHandoff: %v", err)
	}
	if decoded.Target.String() != original.Target.String() {
		t.Errorf("target = %q, want %q", decoded.Target, original.Target)
	}
	decoded.Target = original.Target
	if decoded.ConnectionID != original.ConnectionID || decoded.Strategy != original.Strategy ||
		decoded.BufferSize != original.BufferSize || decoded.LogLevel != original.LogLevel ||
		decoded.LogFormat != original.LogFormat {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestReadHandoff_EmptyStdin(t *testing.T) {
	_, err := ReadHandoff(strings.NewReader(""))
	if err == nil || !strings.Contains(err.Error(), "started by the dispatcher") {
		t.Fatalf("ReadHandoff(empty) = %v, want hint about the dispatcher", err)
	}
}

func TestReadHandoff_RequiresTarget(t *testing.T) {
	data, err := codec.Marshal(map[string]any{"connection_id": 1, "strategy": "buffered"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := ReadHandoff(bytes.NewReader(data)); err == nil {
		t.Fatal("ReadHandoff accepted a handoff without a target")
	}
}

func TestReadHandoff_MalformedTarget(t *testing.T) {
	data, err := codec.Marshal(map[string]any{"connection_id": 1, "target": "VSOCK:3"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if _, err := ReadHandoff(bytes.NewReader(data)); err == nil {
		t.Fatal("ReadHandoff accepted a malformed target")
	}
}

func TestRunWorker_BadStrategyClosesConnection(t *testing.T) {
	near, peer := testutil.StreamPair(t)

	err := RunWorker(context.Background(), Handoff{
		Target:   mustParse(t, "TCP:127.0.0.1:1"),
		Strategy: "carrier-pigeon",
	}, near, quietLogger())
	if err == nil {
		t.Fatal("RunWorker accepted an unknown strategy")
	}

	peer.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := peer.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("peer read = %v, want EOF", err)
	}
}

func TestRunWorker_ConnectFailureClosesConnection(t *testing.T) {
	near, peer := testutil.StreamPair(t)
	missing := mustParse(t, "UDS:"+testutil.SocketDir(t)+"/absent.sock")

	if err := RunWorker(context.Background(), Handoff{Target: missing}, near, quietLogger()); err == nil {
		t.Fatal("RunWorker succeeded against a missing target")
	}

	peer.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := peer.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("peer read = %v, want EOF", err)
	}
}

// lockedWriter serializes writes from a child's stderr copier with
// reads from the test.
type lockedWriter struct {
	mutex  sync.Mutex
	buffer *bytes.Buffer
}

func (w *lockedWriter) Write(data []byte) (int, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.buffer.Write(data)
}

func (w *lockedWriter) String() string {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.buffer.String()
}
