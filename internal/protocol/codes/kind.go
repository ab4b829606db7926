package codes

import (
	"fmt"
	"strings"

	"github.com/danmuck/dmapctl/internal/protocol"
)

// Kind is the primitive or container kind a content code declares.
// The numeric values are the wire type codes.
type Kind uint16

const (
	KindI8        Kind = 1
	KindU8        Kind = 2
	KindI16       Kind = 3
	KindU16       Kind = 4
	KindI32       Kind = 5
	KindU32       Kind = 6
	KindI64       Kind = 7
	KindU64       Kind = 8
	KindString    Kind = 9
	KindTimestamp Kind = 10
	KindVersion   Kind = 11
	KindContainer Kind = 12
)

var kindNames = [...]string{
	KindI8:        "i8",
	KindU8:        "u8",
	KindI16:       "i16",
	KindU16:       "u16",
	KindI32:       "i32",
	KindU32:       "u32",
	KindI64:       "i64",
	KindU64:       "u64",
	KindString:    "string",
	KindTimestamp: "timestamp",
	KindVersion:   "version",
	KindContainer: "container",
}

// KindFromCode maps a wire type code to its Kind.
func KindFromCode(code uint16) (Kind, error) {
	k := Kind(code)
	if !k.Valid() {
		return 0, protocol.Errorf(protocol.PhaseBootstrap, protocol.ErrUnknownTypeKind, nil, "type code %d", code)
	}
	return k, nil
}

// ParseKind accepts the names produced by Kind.String, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k := KindI8; k <= KindContainer; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", protocol.ErrUnknownTypeKind, s)
}

func (k Kind) Valid() bool {
	return k >= KindI8 && k <= KindContainer
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint16(k))
	}
	return kindNames[k]
}

// Width is the body size in bytes of a numeric kind. String and Container
// have no intrinsic width and report 0.
func (k Kind) Width() int {
	switch k {
	case KindI8, KindU8:
		return 1
	case KindI16, KindU16:
		return 2
	case KindI32, KindU32, KindTimestamp, KindVersion:
		return 4
	case KindI64, KindU64:
		return 8
	default:
		return 0
	}
}

// Signed reports whether a numeric kind is two's-complement.
func (k Kind) Signed() bool {
	switch k {
	case KindI8, KindI16, KindI32, KindI64:
		return true
	default:
		return false
	}
}

func (k Kind) Numeric() bool {
	return k.Width() > 0
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", protocol.ErrUnknownTypeKind, uint16(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
