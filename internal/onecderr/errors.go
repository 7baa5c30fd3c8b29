// Package onecderr defines the tagged error taxonomy used throughout the
// database engine. The shape follows server/innodb/buffer_pool/errors.go
// in the teacher codebase (a struct wrapping an operation name and a cause,
// with errors.Is-friendly sentinels and IsXxx predicates) generalized to
// carry the named detail fields the format's corruption errors need
// (expected vs. actual, block numbers, field indexes).
package onecderr

import (
	"fmt"
	"strings"
)

// Kind classifies an error without pinning down its Go type, per spec §7.
type Kind int

const (
	_ Kind = iota
	Unavailable
	OutOfBounds
	CorruptHeader
	CorruptObject
	CorruptBlob
	CorruptRecord
	SchemaMismatch
	ReadOnly
	IoError
)

func (k Kind) String() string {
	switch k {
	case Unavailable:
		return "Unavailable"
	case OutOfBounds:
		return "OutOfBounds"
	case CorruptHeader:
		return "CorruptHeader"
	case CorruptObject:
		return "CorruptObject"
	case CorruptBlob:
		return "CorruptBlob"
	case CorruptRecord:
		return "CorruptRecord"
	case SchemaMismatch:
		return "SchemaMismatch"
	case ReadOnly:
		return "ReadOnly"
	case IoError:
		return "IoError"
	default:
		return "Unknown"
	}
}

// Detail is one (key, value) pair attached to an Error, in the order they
// were added. Never swallowed or reordered on the way up the call stack
// (spec §9, "Exception control flow").
type Detail struct {
	Key   string
	Value interface{}
}

// Error is the single error type the core returns. Kind dispatch is done
// with Is/As against the sentinels below, never by string matching.
type Error struct {
	Kind    Kind
	Op      string
	Details []Detail
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Op, e.Kind)
	for _, d := range e.Details {
		fmt.Fprintf(&b, " %s=%v", d.Key, d.Value)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, onecderr.Unavailable) etc. work by comparing the
// sentinel kind wrapped by kindSentinel.
func (e *Error) Is(target error) bool {
	ks, ok := target.(kindSentinel)
	if !ok {
		return false
	}
	return e.Kind == Kind(ks)
}

// kindSentinel lets callers write errors.Is(err, onecderr.SentinelFor(CorruptBlob)).
type kindSentinel Kind

func (kindSentinel) Error() string { return "" }

// SentinelFor returns an error value usable with errors.Is to test Kind.
func SentinelFor(k Kind) error { return kindSentinel(k) }

// New builds an *Error with the given kind, operation name and details.
func New(kind Kind, op string, details ...Detail) *Error {
	return &Error{Kind: kind, Op: op, Details: details}
}

// Wrap builds an *Error around an existing cause.
func Wrap(kind Kind, op string, cause error, details ...Detail) *Error {
	return &Error{Kind: kind, Op: op, Details: details, Cause: cause}
}

// D is shorthand for constructing a Detail.
func D(key string, value interface{}) Detail { return Detail{Key: key, Value: value} }

// Is reports whether the first *Error in err's Unwrap chain (err itself,
// if it is one) has the given Kind. The search stops at that *Error: a
// *Error carried as its Cause is not inspected.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
