package trip

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the service.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	}
	return "internal"
}

// Error is the structured error returned by every operation of the service.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ErrRecordNotFound is returned by stores when a looked-up row does not exist.
var ErrRecordNotFound = errors.New("record not found")

func newError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error { return newError(KindValidation, format, args...) }

func NotFound(format string, args ...any) error { return newError(KindNotFound, format, args...) }

func Forbidden(format string, args ...any) error { return newError(KindForbidden, format, args...) }

func Conflict(format string, args ...any) error { return newError(KindConflict, format, args...) }

// KindOf reports the kind of err, or KindInternal for errors raised outside the service.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
