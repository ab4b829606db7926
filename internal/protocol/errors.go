package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the codec matches exactly one of these
// through errors.Is.
var (
	ErrTruncatedInput   = errors.New("dmap: truncated input")
	ErrUnknownTypeKind  = errors.New("dmap: unknown type kind")
	ErrInvalidUTF8      = errors.New("dmap: invalid utf-8 in string field")
	ErrTrailingData     = errors.New("dmap: trailing data")
	ErrUnknownField     = errors.New("dmap: unknown field")
	ErrBootstrapFailure = errors.New("dmap: bootstrap failure")

	ErrWidthMismatch   = errors.New("dmap: scalar width mismatch")
	ErrTypeMismatch    = errors.New("dmap: type mismatch")
	ErrMissingField    = errors.New("dmap: missing field")
	ErrDuplicateField  = errors.New("dmap: duplicate field")
	ErrUnsupportedType = errors.New("dmap: unsupported type")
	ErrRecordTooLarge  = errors.New("dmap: record too large")
	ErrUnbalanced      = errors.New("dmap: unbalanced container")
)

// Phase names the codec stage an error was raised in.
type Phase string

const (
	PhaseDecode    Phase = "decode"
	PhaseEncode    Phase = "encode"
	PhaseBootstrap Phase = "bootstrap"
	PhaseBind      Phase = "bind"
)

// Error is the structured error type returned by the codec packages.
type Error struct {
	Phase  Phase
	Kind   error
	Path   []string
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("dmap: error")
	}
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "/"))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Errorf builds an *Error for phase and kind with a formatted detail.
func Errorf(phase Phase, kind error, path []string, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Path:   clonePath(path),
		Detail: fmt.Sprintf(format, args...),
	}
}

// Wrap re-tags cause under phase, keeping its kind when cause is already an
// *Error. A nil cause returns nil.
func Wrap(phase Phase, cause error, detail string) error {
	if cause == nil {
		return nil
	}
	var pe *Error
	if errors.As(cause, &pe) {
		return &Error{Phase: phase, Kind: pe.Kind, Path: pe.Path, Detail: detail, Cause: cause}
	}
	return &Error{Phase: phase, Detail: detail, Cause: cause}
}

// KindOf returns the sentinel kind carried by err, or nil.
func KindOf(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

var kinds = []error{
	ErrTruncatedInput,
	ErrUnknownTypeKind,
	ErrInvalidUTF8,
	ErrTrailingData,
	ErrUnknownField,
	ErrBootstrapFailure,
	ErrWidthMismatch,
	ErrTypeMismatch,
	ErrMissingField,
	ErrDuplicateField,
	ErrUnsupportedType,
	ErrRecordTooLarge,
	ErrUnbalanced,
}

func clonePath(path []string) []string {
	if len(path) == 0 {
		return nil
	}
	out := make([]string, len(path))
	copy(out, path)
	return out
}
