package value

import (
	"bytes"
	"fmt"

	"github.com/danmuck/dmapctl/internal/protocol/tlv"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindString
	KindContainer
	KindUnknown
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindI8:        "i8",
	KindU8:        "u8",
	KindI16:       "i16",
	KindU16:       "u16",
	KindI32:       "i32",
	KindU32:       "u32",
	KindI64:       "i64",
	KindU64:       "u64",
	KindString:    "string",
	KindContainer: "container",
	KindUnknown:   "unknown",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func parseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s && Kind(i) != KindInvalid {
			return Kind(i), true
		}
	}
	return KindInvalid, false
}

// Name identifies an item: a dictionary name, or the raw tag of a record the
// dictionary did not know. Names of different variants never compare equal.
type Name struct {
	text string
	tag  tlv.Tag
	raw  bool
}

// Named is the name of a record resolved through the dictionary.
func Named(text string) Name {
	return Name{text: text}
}

// Code is the name of a record whose tag the dictionary did not resolve.
func Code(tag tlv.Tag) Name {
	return Name{tag: tag, raw: true}
}

func (n Name) Known() bool {
	return !n.raw
}

// Text is the dictionary name, empty for tag names.
func (n Name) Text() string {
	return n.text
}

// Tag returns the raw tag of an unresolved name.
func (n Name) Tag() (tlv.Tag, bool) {
	return n.tag, n.raw
}

func (n Name) String() string {
	if n.raw {
		return "<" + n.tag.String() + ">"
	}
	return n.text
}

// Value is one decoded field value. The zero Value is invalid.
type Value struct {
	kind  Kind
	bits  uint64
	str   string
	raw   []byte
	items []Item
}

func I8(v int8) Value       { return Value{kind: KindI8, bits: uint64(v)} }
func U8(v uint8) Value      { return Value{kind: KindU8, bits: uint64(v)} }
func I16(v int16) Value     { return Value{kind: KindI16, bits: uint64(v)} }
func U16(v uint16) Value    { return Value{kind: KindU16, bits: uint64(v)} }
func I32(v int32) Value     { return Value{kind: KindI32, bits: uint64(v)} }
func U32(v uint32) Value    { return Value{kind: KindU32, bits: uint64(v)} }
func I64(v int64) Value     { return Value{kind: KindI64, bits: uint64(v)} }
func U64(v uint64) Value    { return Value{kind: KindU64, bits: v} }
func String(s string) Value { return Value{kind: KindString, str: s} }

// Container holds child items in wire order.
func Container(items ...Item) Value {
	return Value{kind: KindContainer, items: items}
}

// Unknown holds the body of a record whose tag the dictionary did not resolve.
func Unknown(body []byte) Value {
	return Value{kind: KindUnknown, raw: body}
}

func (v Value) Kind() Kind {
	return v.kind
}

// Int returns signed scalars widened to int64.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindI8:
		return int64(int8(v.bits)), true
	case KindI16:
		return int64(int16(v.bits)), true
	case KindI32:
		return int64(int32(v.bits)), true
	case KindI64:
		return int64(v.bits), true
	}
	return 0, false
}

// Uint returns unsigned scalars widened to uint64.
func (v Value) Uint() (uint64, bool) {
	switch v.kind {
	case KindU8, KindU16, KindU32, KindU64:
		return v.bits, true
	}
	return 0, false
}

// Bits is the raw scalar pattern, zero-extended from the kind's width.
func (v Value) Bits() uint64 {
	switch v.kind {
	case KindI8:
		return uint64(uint8(v.bits))
	case KindI16:
		return uint64(uint16(v.bits))
	case KindI32:
		return uint64(uint32(v.bits))
	}
	return v.bits
}

func (v Value) Text() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Bytes() ([]byte, bool) {
	return v.raw, v.kind == KindUnknown
}

func (v Value) Items() ([]Item, bool) {
	return v.items, v.kind == KindContainer
}

// Scalar reports whether v is one of the integer variants.
func (v Value) Scalar() bool {
	return v.kind >= KindI8 && v.kind <= KindU64
}

// Find returns the first child item called name.
func (v Value) Find(name string) (Item, bool) {
	for _, it := range v.items {
		if it.Name == Named(name) {
			return it, true
		}
	}
	return Item{}, false
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindUnknown:
		return fmt.Sprintf("unknown(% x)", v.raw)
	case KindContainer:
		return fmt.Sprintf("container(%d)", len(v.items))
	case KindInvalid:
		return "invalid"
	}
	if i, ok := v.Int(); ok {
		return fmt.Sprintf("%s(%d)", v.kind, i)
	}
	return fmt.Sprintf("%s(%d)", v.kind, v.bits)
}

// Item is one named value.
type Item struct {
	Name  Name
	Value Value
}

// Equal reports whether a and b are structurally identical: same variant,
// bit-identical scalars, byte-identical payloads and equal children in order.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindString:
		return a.str == b.str
	case KindUnknown:
		return bytes.Equal(a.raw, b.raw)
	case KindContainer:
		return EqualItems(a.items, b.items)
	case KindInvalid:
		return true
	}
	return a.Bits() == b.Bits()
}

func (it Item) Equal(other Item) bool {
	return it.Name == other.Name && Equal(it.Value, other.Value)
}

// EqualItems compares two ordered item lists.
func EqualItems(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
