// Package dberr defines the typed error kinds surfaced by the engine.
// Every failure of a statement is one of these kinds; callers branch on
// KindOf (the HTTP facade maps kinds to status codes).
package dberr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindParse
	KindSchema
	KindType
	KindConstraint
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindSchema:
		return "schema error"
	case KindType:
		return "type error"
	case KindConstraint:
		return "constraint error"
	case KindNotFound:
		return "not found"
	default:
		return "unknown error"
	}
}

// Error is a statement-local failure. The message is user-facing and is
// reported verbatim, so constructors must produce the documented text.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Parsef(format string, args ...any) error { return newf(KindParse, format, args...) }

func Schemaf(format string, args ...any) error { return newf(KindSchema, format, args...) }

func Typef(format string, args ...any) error { return newf(KindType, format, args...) }

func Constraintf(format string, args ...any) error { return newf(KindConstraint, format, args...) }

func NotFoundf(format string, args ...any) error { return newf(KindNotFound, format, args...) }

// KindOf extracts the kind from an error chain, KindUnknown if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
