package dmap

import (
	"reflect"

	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/codes"
	"github.com/danmuck/dmapctl/internal/protocol/tlv"
	"github.com/danmuck/dmapctl/internal/protocol/value"
)

// EncodeFrom encodes the tagged fields of src as root-level records in
// declaration order. Nil pointer fields are omitted and slice fields are
// written as runs of sibling records.
func EncodeFrom(src any, dict *codes.Dictionary) ([]byte, error) {
	rv := reflect.ValueOf(src)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, protocol.Errorf(protocol.PhaseBind, protocol.ErrUnsupportedType, nil, "nil %T", src)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, protocol.Errorf(protocol.PhaseBind, protocol.ErrUnsupportedType, nil, "source must be a struct, got %T", src)
	}
	b, err := binderFor(rv.Type())
	if err != nil {
		return nil, err
	}
	e := newEncoder(dict)
	if err := e.structFields(b, rv); err != nil {
		return nil, err
	}
	return e.finish()
}

func (e *encoder) structFields(b *binder, rv reflect.Value) error {
	for _, f := range b.fields {
		if err := e.field(f, rv.Field(f.index)); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) field(f boundField, fv reflect.Value) error {
	t, err := e.resolve(value.Named(f.name))
	if err != nil {
		return err
	}
	switch f.bind.kind {
	case bindSlice:
		for i := 0; i < fv.Len(); i++ {
			e.w.Tag(t.tag)
			if err := e.bound(f.name, t.kind, f.bind.elem, fv.Index(i)); err != nil {
				return err
			}
		}
		return nil
	case bindPointer:
		mark := e.w.Mark()
		e.w.Tag(t.tag)
		if fv.IsNil() {
			e.w.Rewind(mark)
			return nil
		}
		return e.bound(f.name, t.kind, f.bind.elem, fv.Elem())
	}
	e.w.Tag(t.tag)
	return e.bound(f.name, t.kind, f.bind, fv)
}

// bound writes the length and body for a value whose tag is already out.
// Integers are written at the width kind declares.
func (e *encoder) bound(name string, kind codes.Kind, b *binder, v reflect.Value) error {
	switch b.kind {
	case bindInt:
		return e.integer(name, kind, uint64(v.Int()), true)
	case bindUint:
		return e.integer(name, kind, v.Uint(), false)
	case bindString:
		if kind != codes.KindString {
			return e.mismatch(name, kind, b.typ)
		}
		return e.wrap(e.w.String(v.String()))
	case bindBytes:
		return e.wrap(e.w.Body(v.Bytes()))
	case bindTag:
		if kind.Width() != 4 {
			return e.mismatch(name, kind, b.typ)
		}
		e.w.Uint32(v.Interface().(tlv.Tag).Uint32())
	case bindValue:
		val := v.Interface().(value.Value)
		if err := e.check(name, kind, val); err != nil {
			return err
		}
		return e.tree(name, val)
	case bindStruct:
		if kind != codes.KindContainer {
			return e.mismatch(name, kind, b.typ)
		}
		return e.nested(name, func() error { return e.structFields(b, v) })
	default:
		return protocol.Errorf(protocol.PhaseEncode, protocol.ErrUnsupportedType, e.path, "%s", b.typ)
	}
	return nil
}

func (e *encoder) nested(name string, body func() error) error {
	e.path = append(e.path, name)
	e.w.Open()
	if err := body(); err != nil {
		return err
	}
	if err := e.close(); err != nil {
		return err
	}
	e.path = e.path[:len(e.path)-1]
	return nil
}
