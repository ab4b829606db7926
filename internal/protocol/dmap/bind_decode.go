package dmap

import (
	"reflect"

	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/codes"
	"github.com/danmuck/dmapctl/internal/protocol/tlv"
	"github.com/danmuck/dmapctl/internal/protocol/value"
)

// DecodeInto decodes the root level of buf into the struct target points at.
// Records are matched to fields by their dmap tag name; records with no
// matching field are skipped.
func DecodeInto(buf []byte, dict *codes.Dictionary, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return protocol.Errorf(protocol.PhaseBind, protocol.ErrUnsupportedType, nil, "target must be a non-nil pointer, got %T", target)
	}
	b, err := binderFor(rv.Elem().Type())
	if err != nil {
		return err
	}
	if b.kind != bindStruct {
		return protocol.Errorf(protocol.PhaseBind, protocol.ErrUnsupportedType, nil, "target must point at a struct, got %T", target)
	}
	d := NewDecoder(dict, buf)
	if err := decodeStruct(d, b, rv.Elem()); err != nil {
		return err
	}
	if !d.Done() {
		return protocol.Errorf(protocol.PhaseDecode, protocol.ErrTrailingData, nil, "%d bytes not consumed", len(d.rest))
	}
	return nil
}

func decodeStruct(d *Decoder, b *binder, dst reflect.Value) error {
	seen := make([]bool, len(b.fields))
	for {
		key, ok, err := d.NextKey()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !key.Name.Known() {
			d.Skip()
			continue
		}
		i, ok := b.byName[key.Name.Text()]
		if !ok {
			d.Skip()
			continue
		}
		f := b.fields[i]
		if seen[i] {
			return protocol.Errorf(protocol.PhaseBind, protocol.ErrDuplicateField, d.Path(),
				"%s appears in more than one run", f.name)
		}
		seen[i] = true
		if err := decodeField(d, f.bind, dst.Field(f.index), key); err != nil {
			return err
		}
	}
	for i, f := range b.fields {
		if !seen[i] && !f.optional {
			return protocol.Errorf(protocol.PhaseBind, protocol.ErrMissingField, d.Path(),
				"%s required by %s", f.name, b.typ)
		}
	}
	return nil
}

func decodeField(d *Decoder, b *binder, dst reflect.Value, key Key) error {
	switch b.kind {
	case bindSlice:
		out := reflect.MakeSlice(b.typ, 0, 4)
		err := d.Repeated(func() error {
			ev := reflect.New(b.elem.typ).Elem()
			if err := decodeOne(d, b.elem, ev, key); err != nil {
				return err
			}
			out = reflect.Append(out, ev)
			return nil
		})
		if err != nil {
			return err
		}
		dst.Set(out)
		return nil
	case bindPointer:
		p := reflect.New(b.elem.typ)
		if err := decodeOne(d, b.elem, p.Elem(), key); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	return decodeOne(d, b, dst, key)
}

func decodeOne(d *Decoder, b *binder, dst reflect.Value, key Key) error {
	switch b.kind {
	case bindStruct:
		sub, err := d.Nested()
		if err != nil {
			return err
		}
		return decodeStruct(sub, b, dst)
	case bindBytes:
		rec, err := d.Raw()
		if err != nil {
			return err
		}
		dst.SetBytes(append([]byte(nil), rec.Body...))
		return nil
	}

	v, err := d.Value()
	if err != nil {
		return err
	}
	mismatch := func() error {
		return protocol.Errorf(protocol.PhaseBind, protocol.ErrTypeMismatch, d.Path(),
			"%s holds %s, cannot bind to %s", key.Name, v.Kind(), b.typ)
	}
	switch b.kind {
	case bindValue:
		dst.Set(reflect.ValueOf(v))
	case bindString:
		s, ok := v.Text()
		if !ok {
			return mismatch()
		}
		dst.SetString(s)
	case bindInt:
		n, ok := v.Int()
		if !ok {
			u, isUint := v.Uint()
			if !isUint || u > 1<<63-1 {
				return mismatch()
			}
			n = int64(u)
		}
		if dst.OverflowInt(n) {
			return mismatch()
		}
		dst.SetInt(n)
	case bindUint:
		u, ok := v.Uint()
		if !ok {
			n, isInt := v.Int()
			if !isInt || n < 0 {
				return mismatch()
			}
			u = uint64(n)
		}
		if dst.OverflowUint(u) {
			return mismatch()
		}
		dst.SetUint(u)
	case bindTag:
		if v.Kind() != value.KindU32 && v.Kind() != value.KindI32 {
			return mismatch()
		}
		dst.Set(reflect.ValueOf(tlv.TagFromUint32(uint32(v.Bits()))))
	default:
		return mismatch()
	}
	return nil
}
