package value

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/danmuck/dmapctl/internal/protocol/tlv"
)

// itemJSON is the wire-neutral JSON shape of an Item. Known items carry
// "name", unresolved ones carry "tag". Scalars are JSON numbers, strings are
// JSON strings, unknown payloads are base64 and containers are item arrays.
type itemJSON struct {
	Name  string          `json:"name,omitempty"`
	Tag   *tlv.Tag        `json:"tag,omitempty"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (it Item) MarshalJSON() ([]byte, error) {
	out := itemJSON{Type: it.Value.kind.String()}
	if tag, ok := it.Name.Tag(); ok {
		out.Tag = &tag
	} else {
		out.Name = it.Name.Text()
	}
	raw, err := it.Value.marshalPayload()
	if err != nil {
		return nil, fmt.Errorf("value: item %s: %w", it.Name, err)
	}
	out.Value = raw
	return json.Marshal(out)
}

func (it *Item) UnmarshalJSON(b []byte) error {
	var in itemJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch {
	case in.Tag != nil && in.Name != "":
		return fmt.Errorf("value: item has both name %q and tag %s", in.Name, in.Tag)
	case in.Tag != nil:
		it.Name = Code(*in.Tag)
	case in.Name != "":
		it.Name = Named(in.Name)
	default:
		return fmt.Errorf("value: item has neither name nor tag")
	}
	kind, ok := parseKind(in.Type)
	if !ok {
		return fmt.Errorf("value: item %s: unknown type %q", it.Name, in.Type)
	}
	v, err := unmarshalPayload(kind, in.Value)
	if err != nil {
		return fmt.Errorf("value: item %s: %w", it.Name, err)
	}
	it.Value = v
	return nil
}

func (v Value) marshalPayload() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindUnknown:
		return json.Marshal(v.raw)
	case KindContainer:
		items := v.items
		if items == nil {
			items = []Item{}
		}
		return json.Marshal(items)
	case KindInvalid:
		return nil, fmt.Errorf("invalid value")
	}
	if i, ok := v.Int(); ok {
		return json.Marshal(i)
	}
	return json.Marshal(v.bits)
}

func unmarshalPayload(kind Kind, raw json.RawMessage) (Value, error) {
	switch kind {
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return String(s), nil
	case KindUnknown:
		var b []byte
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, err
		}
		return Unknown(b), nil
	case KindContainer:
		var items []Item
		if err := json.Unmarshal(raw, &items); err != nil {
			return Value{}, err
		}
		return Container(items...), nil
	case KindI8, KindI16, KindI32, KindI64:
		var i int64
		if err := json.Unmarshal(raw, &i); err != nil {
			return Value{}, err
		}
		return signed(kind, i)
	default:
		var u uint64
		if err := json.Unmarshal(raw, &u); err != nil {
			return Value{}, err
		}
		return unsigned(kind, u)
	}
}

func signed(kind Kind, i int64) (Value, error) {
	switch kind {
	case KindI8:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return Value{}, fmt.Errorf("%d overflows i8", i)
		}
		return I8(int8(i)), nil
	case KindI16:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return Value{}, fmt.Errorf("%d overflows i16", i)
		}
		return I16(int16(i)), nil
	case KindI32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return Value{}, fmt.Errorf("%d overflows i32", i)
		}
		return I32(int32(i)), nil
	}
	return I64(i), nil
}

func unsigned(kind Kind, u uint64) (Value, error) {
	switch kind {
	case KindU8:
		if u > math.MaxUint8 {
			return Value{}, fmt.Errorf("%d overflows u8", u)
		}
		return U8(uint8(u)), nil
	case KindU16:
		if u > math.MaxUint16 {
			return Value{}, fmt.Errorf("%d overflows u16", u)
		}
		return U16(uint16(u)), nil
	case KindU32:
		if u > math.MaxUint32 {
			return Value{}, fmt.Errorf("%d overflows u32", u)
		}
		return U32(uint32(u)), nil
	}
	return U64(u), nil
}
