package dmap

import (
	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/codes"
	"github.com/danmuck/dmapctl/internal/protocol/tlv"
	"github.com/danmuck/dmapctl/internal/protocol/value"
)

const defaultSizeHint = 256

// encoder carries the output buffer and the open-container stack for one
// encode call.
type encoder struct {
	dict *codes.Dictionary
	w    *tlv.Writer
	path []string
}

func newEncoder(dict *codes.Dictionary) *encoder {
	return &encoder{dict: dict, w: tlv.NewWriter(defaultSizeHint)}
}

// finish returns the output once every container has been closed.
func (e *encoder) finish() ([]byte, error) {
	if e.w.Depth() != 0 {
		return nil, protocol.Errorf(protocol.PhaseEncode, protocol.ErrUnbalanced, nil,
			"%d containers left open", e.w.Depth())
	}
	return e.w.Bytes(), nil
}

// Encode writes items as root-level records. On error no partial output is
// returned.
func Encode(items []value.Item, dict *codes.Dictionary) ([]byte, error) {
	e := newEncoder(dict)
	for _, it := range items {
		if err := e.item(it); err != nil {
			return nil, err
		}
	}
	return e.finish()
}

// EncodeItem writes a single root record.
func EncodeItem(it value.Item, dict *codes.Dictionary) ([]byte, error) {
	return Encode([]value.Item{it}, dict)
}

// target is the tag a record is written under and the kind the dictionary
// declares for it. Raw code names carry no kind and accept any value.
type target struct {
	tag  tlv.Tag
	kind codes.Kind
}

func (e *encoder) resolve(name value.Name) (target, error) {
	if tag, ok := name.Tag(); ok {
		return target{tag: tag}, nil
	}
	code, ok := e.dict.ByName(name.Text())
	if !ok {
		return target{}, protocol.Errorf(protocol.PhaseEncode, protocol.ErrUnknownField, e.path,
			"no content code named %q", name.Text())
	}
	return target{tag: code.Tag, kind: code.Kind}, nil
}

func (e *encoder) item(it value.Item) error {
	t, err := e.resolve(it.Name)
	if err != nil {
		return err
	}
	if err := e.check(it.Name.String(), t.kind, it.Value); err != nil {
		return err
	}
	e.w.Tag(t.tag)
	return e.tree(it.Name.String(), it.Value)
}

// tree writes the length and body of v, recursing into containers.
func (e *encoder) tree(name string, v value.Value) error {
	if v.Kind() != value.KindContainer {
		return e.scalar(v)
	}
	children, _ := v.Items()
	return e.nested(name, func() error {
		for _, child := range children {
			if err := e.item(child); err != nil {
				return err
			}
		}
		return nil
	})
}

// check requires v to be the variant decoding kind would produce. Unknown
// payloads are written verbatim under any tag.
func (e *encoder) check(name string, kind codes.Kind, v value.Value) error {
	if kind == 0 || v.Kind() == value.KindUnknown || v.Kind() == variantOf(kind) {
		return nil
	}
	return e.mismatch(name, kind, v.Kind())
}

func (e *encoder) mismatch(name string, kind codes.Kind, got any) error {
	return protocol.Errorf(protocol.PhaseEncode, protocol.ErrTypeMismatch, e.path,
		"%s declares %s, cannot encode %v", name, kind, got)
}

func variantOf(kind codes.Kind) value.Kind {
	switch kind {
	case codes.KindI8:
		return value.KindI8
	case codes.KindU8:
		return value.KindU8
	case codes.KindI16:
		return value.KindI16
	case codes.KindU16:
		return value.KindU16
	case codes.KindI32:
		return value.KindI32
	case codes.KindU32, codes.KindTimestamp, codes.KindVersion:
		return value.KindU32
	case codes.KindI64:
		return value.KindI64
	case codes.KindU64:
		return value.KindU64
	case codes.KindString:
		return value.KindString
	case codes.KindContainer:
		return value.KindContainer
	}
	return value.KindInvalid
}

// scalar writes the length and body of a non-container value.
func (e *encoder) scalar(v value.Value) error {
	switch v.Kind() {
	case value.KindI8, value.KindU8:
		e.w.Uint8(uint8(v.Bits()))
	case value.KindI16, value.KindU16:
		e.w.Uint16(uint16(v.Bits()))
	case value.KindI32, value.KindU32:
		e.w.Uint32(uint32(v.Bits()))
	case value.KindI64, value.KindU64:
		e.w.Uint64(v.Bits())
	case value.KindString:
		s, _ := v.Text()
		return e.wrap(e.w.String(s))
	case value.KindUnknown:
		raw, _ := v.Bytes()
		return e.wrap(e.w.Body(raw))
	default:
		return protocol.Errorf(protocol.PhaseEncode, protocol.ErrUnsupportedType, e.path, "value of kind %s", v.Kind())
	}
	return nil
}

// integer writes bits at the width kind declares. signed reports whether
// bits holds an int64 rather than a uint64.
func (e *encoder) integer(name string, kind codes.Kind, bits uint64, signed bool) error {
	if !kind.Numeric() {
		return e.mismatch(name, kind, "an integer")
	}
	if !fits(kind, bits, signed) {
		if signed {
			return e.mismatch(name, kind, int64(bits))
		}
		return e.mismatch(name, kind, bits)
	}
	switch kind.Width() {
	case 1:
		e.w.Uint8(uint8(bits))
	case 2:
		e.w.Uint16(uint16(bits))
	case 4:
		e.w.Uint32(uint32(bits))
	default:
		e.w.Uint64(bits)
	}
	return nil
}

// fits reports whether the integer in bits is representable in kind.
func fits(kind codes.Kind, bits uint64, signed bool) bool {
	width := uint(kind.Width()) * 8
	if signed {
		n := int64(bits)
		if kind.Signed() {
			if width == 64 {
				return true
			}
			limit := int64(1) << (width - 1)
			return n >= -limit && n < limit
		}
		if n < 0 {
			return false
		}
	}
	if kind.Signed() {
		return bits < uint64(1)<<(width-1)
	}
	return width == 64 || bits < uint64(1)<<width
}

func (e *encoder) close() error {
	return e.wrap(e.w.Close())
}

func (e *encoder) wrap(err error) error {
	if err == nil {
		return nil
	}
	return protocol.Errorf(protocol.PhaseEncode, err, e.path, "")
}
