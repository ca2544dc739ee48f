// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package addrspec

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the transport of an endpoint.
type Kind int

const (
	// KindInvalid is the zero Kind. It never results from a successful Parse.
	KindInvalid Kind = iota
	// KindTCP is IPv4 TCP: host, port.
	KindTCP
	// KindTCP6 is IPv6 TCP: host, port.
	KindTCP6
	// KindUnix is a Unix domain stream socket: path.
	KindUnix
	// KindVSock is a virtual machine socket: context id, port.
	KindVSock
	// KindVSockMediator is a VSOCK stream bootstrapped through a
	// mediator Unix socket: mediator path, context id, port.
	KindVSockMediator
)

// kindInfo is the per-kind table: literal name and required argument count.
var kindInfo = map[Kind]struct {
	name  string
	arity int
}{
	KindTCP:           {"TCP", 2},
	KindTCP6:          {"TCP6", 2},
	KindUnix:          {"UDS", 1},
	KindVSock:         {"VSOCK", 2},
	KindVSockMediator: {"VSOCKMULT", 3},
}

// Kinds lists every valid Kind in usage order.
var Kinds = []Kind{KindTCP, KindTCP6, KindUnix, KindVSock, KindVSockMediator}

// String returns the literal kind name used in addrspec text.
func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Arity returns the exact number of arguments the kind requires, or 0
// for an invalid kind.
func (k Kind) Arity() int {
	return kindInfo[k].arity
}

// CanListen reports whether the kind is valid as a listening endpoint.
// The mediator variant only exists on the connecting side.
func (k Kind) CanListen() bool {
	switch k {
	case KindTCP, KindTCP6, KindUnix, KindVSock:
		return true
	}
	return false
}

// ParseKind maps a case-sensitive kind name to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, kind := range Kinds {
		if kindInfo[kind].name == name {
			return kind, nil
		}
	}
	return KindInvalid, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Spec is a parsed, arity-checked endpoint descriptor. It is immutable
// once returned by Parse: Args returns a copy.
type Spec struct {
	kind Kind
	args []string
}

// Kind returns the transport kind.
func (s Spec) Kind() Kind { return s.kind }

// Args returns a copy of the ordered arguments.
func (s Spec) Args() []string {
	return append([]string(nil), s.args...)
}

// Arg returns argument i. It panics if i is out of range, which for a
// Spec returned by Parse means i >= Kind().Arity().
func (s Spec) Arg(i int) string { return s.args[i] }

// IsZero reports whether s is the zero Spec.
func (s Spec) IsZero() bool { return s.kind == KindInvalid }

// String renders s back to addrspec text. Arguments containing a
// colon are bracketed so that the result parses back to the same Spec.
func (s Spec) String() string {
	if s.kind == KindInvalid {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(s.kind.String())
	for _, argument := range s.args {
		builder.WriteByte(':')
		if strings.Contains(argument, ":") {
			builder.WriteByte('[')
			builder.WriteString(argument)
			builder.WriteByte(']')
		} else {
			builder.WriteString(argument)
		}
	}
	return builder.String()
}

// MarshalText implements encoding.TextMarshaler so a Spec can travel in
// configuration files and CBOR handoffs as its textual form.
func (s Spec) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via Parse. Empty
// text restores the zero Spec, mirroring MarshalText.
func (s *Spec) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = Spec{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

var (
	// ErrUnknownKind is returned when the kind name is not one of the
	// five literal kind names.
	ErrUnknownKind = errors.New("unknown addrspec kind")

	// ErrArity is returned when the argument count differs from the
	// kind's arity.
	ErrArity = errors.New("wrong number of arguments")

	// ErrSyntax is returned for structural problems: empty text, a
	// missing ':' separator, or a malformed bracketed literal.
	ErrSyntax = errors.New("malformed addrspec")
)

// ParseError describes a rejected addrspec.
type ParseError struct {
	// Text is the input given to Parse.
	Text string
	// Err is one of ErrUnknownKind, ErrArity or ErrSyntax, possibly wrapped.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("addrspec %q: %v", e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse turns addrspec text into a Spec. See the package documentation
// for the accepted grammar.
func Parse(text string) (Spec, error) {
	fail := func(err error) (Spec, error) {
		return Spec{}, &ParseError{Text: text, Err: err}
	}

	name, tail, found := strings.Cut(text, ":")
	if !found {
		return fail(fmt.Errorf("%w: expected KIND:args", ErrSyntax))
	}

	kind, err := ParseKind(name)
	if err != nil {
		return fail(err)
	}

	args, err := splitArgs(tail)
	if err != nil {
		return fail(err)
	}

	if len(args) != kind.Arity() {
		return fail(fmt.Errorf("%w: %s takes %d, got %d", ErrArity, kind, kind.Arity(), len(args)))
	}

	return Spec{kind: kind, args: args}, nil
}

// splitArgs splits the text after the kind name on ':' while treating a
// single "[...]" segment as one literal argument.
func splitArgs(tail string) ([]string, error) {
	var args []string
	bracketed := false
	for {
		if strings.HasPrefix(tail, "[") {
			if bracketed {
				return nil, fmt.Errorf("%w: more than one bracketed literal", ErrSyntax)
			}
			bracketed = true
			end := strings.IndexByte(tail, ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated '['", ErrSyntax)
			}
			args = append(args, tail[1:end])
			rest := tail[end+1:]
			if rest == "" {
				return args, nil
			}
			if rest[0] != ':' {
				return nil, fmt.Errorf("%w: unexpected %q after ']'", ErrSyntax, rest[:1])
			}
			tail = rest[1:]
			continue
		}

		segment, rest, more := strings.Cut(tail, ":")
		args = append(args, segment)
		if !more {
			return args, nil
		}
		tail = rest
	}
}
