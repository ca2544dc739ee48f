// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"strings"
	"testing"
	"time"
)

// recordingT captures the failure message and stops the helper by
// panicking, the way t.Fatalf stops a test goroutine.
type recordingT struct {
	message string
}

type fatalStop struct{}

func (r *recordingT) Helper() {}

func (r *recordingT) Fatalf(format string, args ...any) {
	r.message = formatMessage(append([]any{format}, args...))
	panic(fatalStop{})
}

// failure runs body and returns the message it failed with, or "" if
// it completed.
func failure(body func(t fatalT)) (message string) {
	recorder := &recordingT{}
	defer func() {
		if recovered := recover(); recovered != nil {
			if _, ok := recovered.(fatalStop); !ok {
				panic(recovered)
			}
			message = recorder.message
		}
	}()
	body(recorder)
	return ""
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 42
	if got := RequireReceive(t, ch, time.Second, "buffered value"); got != 42 {
		t.Errorf("RequireReceive = %d, want 42", got)
	}

	message := failure(func(ft fatalT) {
		RequireReceive(ft, make(chan int), 10*time.Millisecond, "waiting for %s", "relay")
	})
	if !strings.Contains(message, "timed out") || !strings.Contains(message, "waiting for relay") {
		t.Errorf("timeout message = %q", message)
	}

	closed := make(chan int)
	close(closed)
	message = failure(func(ft fatalT) {
		RequireReceive(ft, closed, time.Second, "closed channel")
	})
	if !strings.Contains(message, "channel closed without sending a value") {
		t.Errorf("closed channel message = %q", message)
	}
}

func TestRequireSend(t *testing.T) {
	ch := make(chan string, 1)
	RequireSend(t, ch, "ping", time.Second, "buffered send")
	if got := <-ch; got != "ping" {
		t.Errorf("received %q, want ping", got)
	}

	message := failure(func(ft fatalT) {
		RequireSend(ft, make(chan string), "ping", 10*time.Millisecond)
	})
	if !strings.Contains(message, "(no message)") {
		t.Errorf("timeout message = %q", message)
	}
}

func TestRequireClosed(t *testing.T) {
	done := make(chan struct{})
	close(done)
	RequireClosed(t, done, time.Second, "already closed")

	message := failure(func(ft fatalT) {
		RequireClosed(ft, make(chan struct{}), 10*time.Millisecond, "dispatcher shutdown")
	})
	if !strings.Contains(message, "waiting for channel close: dispatcher shutdown") {
		t.Errorf("timeout message = %q", message)
	}
}

func TestUniqueIDIsMonotonic(t *testing.T) {
	first := UniqueID("client")
	second := UniqueID("client")
	if first == second {
		t.Fatalf("UniqueID returned %q twice", first)
	}
	if !strings.HasPrefix(first, "client-") || !strings.HasPrefix(second, "client-") {
		t.Errorf("UniqueID values %q, %q lack the prefix", first, second)
	}
}
