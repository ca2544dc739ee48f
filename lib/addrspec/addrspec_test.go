// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package addrspec

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParse_ExactArity(t *testing.T) {
	for _, kind := range Kinds {
		arguments := make([]string, kind.Arity())
		for i := range arguments {
			arguments[i] = string(rune('a' + i))
		}
		text := kind.String() + ":" + strings.Join(arguments, ":")

		spec, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if spec.Kind() != kind {
			t.Errorf("Parse(%q) kind = %s, want %s", text, spec.Kind(), kind)
		}
		if !reflect.DeepEqual(spec.Args(), arguments) {
			t.Errorf("Parse(%q) args = %q, want %q", text, spec.Args(), arguments)
		}
	}
}

func TestParse_ArityMismatch(t *testing.T) {
	for _, kind := range Kinds {
		for _, count := range []int{kind.Arity() - 1, kind.Arity() + 1} {
			arguments := make([]string, count)
			for i := range arguments {
				arguments[i] = "x"
			}
			text := kind.String() + ":" + strings.Join(arguments, ":")
			if count == 0 {
				text = kind.String()
			}

			_, err := Parse(text)
			if err == nil {
				t.Errorf("Parse(%q) succeeded with %d arguments, want arity error", text, count)
				continue
			}
			var parseError *ParseError
			if !errors.As(err, &parseError) {
				t.Errorf("Parse(%q) error %v is not a *ParseError", text, err)
			}
		}
	}
}

func TestParse_ArityErrorIsErrArity(t *testing.T) {
	_, err := Parse("TCP:localhost:80:extra")
	if !errors.Is(err, ErrArity) {
		t.Fatalf("expected ErrArity, got %v", err)
	}
	_, err = Parse("VSOCKMULT:/run/mediator.sock:3")
	if !errors.Is(err, ErrArity) {
		t.Fatalf("expected ErrArity, got %v", err)
	}
}

func TestParse_BracketedLiteral(t *testing.T) {
	spec, err := Parse("TCP6:[::1]:9000")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"::1", "9000"}
	if !reflect.DeepEqual(spec.Args(), want) {
		t.Fatalf("args = %q, want %q", spec.Args(), want)
	}
	if spec.Kind() != KindTCP6 {
		t.Fatalf("kind = %s, want TCP6", spec.Kind())
	}
}

func TestParse_BracketedLiteralErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unterminated", "TCP6:[::1:9000"},
		{"junk after bracket", "TCP6:[::1]x:9000"},
		{"two bracketed segments", "TCP6:[::1]:[9000]"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.text)
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("Parse(%q) = %v, want ErrSyntax", test.text, err)
			}
		})
	}
}

func TestParse_UnknownKind(t *testing.T) {
	for _, text := range []string{"FOO:1:2", "tcp:localhost:80", "UNIX:/tmp/x", "VSOCKS:1:2"} {
		_, err := Parse(text)
		if !errors.Is(err, ErrUnknownKind) {
			t.Errorf("Parse(%q) = %v, want ErrUnknownKind", text, err)
		}
	}
}

func TestParse_EmptyAndNoColon(t *testing.T) {
	for _, text := range []string{"", "TCP", "UDS", "/tmp/socket"} {
		if _, err := Parse(text); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", text)
		}
	}
}

func TestParse_EmptyHostIsAnArgument(t *testing.T) {
	spec, err := Parse("TCP::8080")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spec.Arg(0) != "" || spec.Arg(1) != "8080" {
		t.Fatalf("args = %q, want [\"\" \"8080\"]", spec.Args())
	}
}

func TestSpec_StringRoundTrip(t *testing.T) {
	for _, text := range []string{
		"TCP:127.0.0.1:80",
		"TCP6:[::1]:9000",
		"UDS:/run/catsock.sock",
		"VSOCK:3:1024",
		"VSOCKMULT:/run/mediator.sock:3:1024",
	} {
		spec, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if got := spec.String(); got != text {
			t.Errorf("String() = %q, want %q", got, text)
		}
	}
}

func TestSpec_ArgsReturnsCopy(t *testing.T) {
	spec, err := Parse("UDS:/tmp/a.sock")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	arguments := spec.Args()
	arguments[0] = "/tmp/mutated.sock"
	if spec.Arg(0) != "/tmp/a.sock" {
		t.Fatalf("Spec mutated through Args(): %q", spec.Arg(0))
	}
}

func TestSpec_UnmarshalText(t *testing.T) {
	var spec Spec
	if err := spec.UnmarshalText([]byte("VSOCK:2:5000")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if spec.Kind() != KindVSock || spec.Arg(1) != "5000" {
		t.Fatalf("unexpected spec %v", spec)
	}
	if err := spec.UnmarshalText([]byte("VSOCK:2")); err == nil {
		t.Fatal("expected error for wrong arity")
	}
	if err := spec.UnmarshalText(nil); err != nil || !spec.IsZero() {
		t.Fatalf("empty text: spec=%v err=%v, want zero spec", spec, err)
	}
}

func TestKind_CanListen(t *testing.T) {
	for _, kind := range Kinds {
		want := kind != KindVSockMediator
		if got := kind.CanListen(); got != want {
			t.Errorf("%s.CanListen() = %v, want %v", kind, got, want)
		}
	}
	if KindInvalid.CanListen() {
		t.Error("KindInvalid.CanListen() = true")
	}
}
