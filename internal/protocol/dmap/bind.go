package dmap

import (
	"reflect"
	"strings"
	"sync"

	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/tlv"
	"github.com/danmuck/dmapctl/internal/protocol/value"
)

const structTag = "dmap"

type bindKind uint8

const (
	bindInt bindKind = iota + 1
	bindUint
	bindString
	bindBytes
	bindTag
	bindValue
	bindStruct
	bindSlice
	bindPointer
)

var (
	tagType   = reflect.TypeOf(tlv.Tag{})
	valueType = reflect.TypeOf(value.Value{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// binder is the compiled plan for one Go type.
type binder struct {
	kind   bindKind
	typ    reflect.Type
	elem   *binder
	fields []boundField
	byName map[string]int
}

type boundField struct {
	name     string
	index    int
	bind     *binder
	optional bool
}

var binders sync.Map // reflect.Type -> *binder

func binderFor(t reflect.Type) (*binder, error) {
	if b, ok := binders.Load(t); ok {
		return b.(*binder), nil
	}
	b, err := compile(t, map[reflect.Type]*binder{})
	if err != nil {
		return nil, err
	}
	actual, _ := binders.LoadOrStore(t, b)
	return actual.(*binder), nil
}

func unsupported(t reflect.Type, why string) error {
	return protocol.Errorf(protocol.PhaseBind, protocol.ErrUnsupportedType, nil, "%s: %s", t, why)
}

func compile(t reflect.Type, seen map[reflect.Type]*binder) (*binder, error) {
	if b, ok := seen[t]; ok {
		return b, nil
	}
	switch t {
	case tagType:
		return &binder{kind: bindTag, typ: t}, nil
	case valueType:
		return &binder{kind: bindValue, typ: t}, nil
	case bytesType:
		return &binder{kind: bindBytes, typ: t}, nil
	}
	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &binder{kind: bindInt, typ: t}, nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &binder{kind: bindUint, typ: t}, nil
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return nil, unsupported(t, "platform-sized integers have no wire width")
	case reflect.String:
		return &binder{kind: bindString, typ: t}, nil
	case reflect.Slice:
		elem, err := compile(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		if elem.kind == bindSlice || elem.kind == bindPointer {
			return nil, unsupported(t, "repeated field elements must be values")
		}
		return &binder{kind: bindSlice, typ: t, elem: elem}, nil
	case reflect.Pointer:
		elem, err := compile(t.Elem(), seen)
		if err != nil {
			return nil, err
		}
		if elem.kind == bindSlice || elem.kind == bindPointer {
			return nil, unsupported(t, "optional fields must point at a value")
		}
		return &binder{kind: bindPointer, typ: t, elem: elem}, nil
	case reflect.Struct:
		return compileStruct(t, seen)
	}
	return nil, unsupported(t, "no DMAP representation")
}

func compileStruct(t reflect.Type, seen map[reflect.Type]*binder) (*binder, error) {
	b := &binder{kind: bindStruct, typ: t, byName: make(map[string]int)}
	seen[t] = b
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get(structTag), ",")
		if name == "" || name == "-" || !sf.IsExported() {
			continue
		}
		if _, dup := b.byName[name]; dup {
			return nil, unsupported(t, "field name "+name+" bound twice")
		}
		fb, err := compile(sf.Type, seen)
		if err != nil {
			return nil, err
		}
		b.byName[name] = len(b.fields)
		b.fields = append(b.fields, boundField{
			name:     name,
			index:    i,
			bind:     fb,
			optional: fb.kind == bindSlice || fb.kind == bindPointer,
		})
	}
	return b, nil
}
