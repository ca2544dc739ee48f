// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	usage := &ExitError{Code: 2, Err: errors.New("expected 2 arguments")}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("listen: address in use"), 1},
		{"exit error", usage, 2},
		{"wrapped exit error", fmt.Errorf("parsing arguments: %w", usage), 2},
		{"silent exit error", &ExitError{Code: 3}, 3},
	}
	for _, test := range tests {
		if got := ExitCode(test.err); got != test.want {
			t.Errorf("%s: ExitCode() = %d, want %d", test.name, got, test.want)
		}
	}
}

func TestExitError_Message(t *testing.T) {
	inner := errors.New("bad addrspec")
	wrapped := &ExitError{Code: 2, Err: inner}
	if wrapped.Error() != "bad addrspec" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if !errors.Is(wrapped, inner) {
		t.Error("ExitError does not unwrap to its cause")
	}
	if (&ExitError{Code: 4}).Error() != "exit code 4" {
		t.Errorf("silent Error() = %q", (&ExitError{Code: 4}).Error())
	}
}
