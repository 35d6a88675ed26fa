package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a rejection so callers can react without matching on
// individual sentinels.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindCapacity
	KindAuthorization
	KindArithmetic
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCapacity:
		return "capacity"
	case KindAuthorization:
		return "authorization"
	case KindArithmetic:
		return "arithmetic"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error is a typed rejection. Code is the stable machine readable name and
// Msg the human readable explanation.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

// New constructs a sentinel error of the supplied kind.
func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Msg
}

// Matches reports whether err carries the same kind and code as target.
// Sentinels declared by different modules for the same condition match.
func Matches(err error, target *Error) bool {
	var typed *Error
	if target == nil || !stderrors.As(err, &typed) || typed == nil {
		return false
	}
	return typed.Kind == target.Kind && typed.Code == target.Code
}

// Wrap annotates err with msg while keeping it matchable with errors.Is.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// KindOf extracts the kind of the first typed error in err's chain.
func KindOf(err error) Kind {
	var typed *Error
	if stderrors.As(err, &typed) && typed != nil {
		return typed.Kind
	}
	return KindUnknown
}

// CodeOf extracts the stable code of the first typed error in err's chain.
func CodeOf(err error) string {
	var typed *Error
	if stderrors.As(err, &typed) && typed != nil {
		return typed.Code
	}
	return ""
}

// Shared sentinels used across the native modules.
var (
	ErrOverflow     = New(KindArithmetic, "Overflow", "arithmetic overflow")
	ErrUnderflow    = New(KindArithmetic, "Overflow", "arithmetic underflow")
	ErrDivideByZero = New(KindArithmetic, "DivideByZero", "division by zero")
)
