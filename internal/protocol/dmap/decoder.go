package dmap

import (
	"encoding/binary"
	"errors"
	"strconv"
	"unicode/utf8"

	"github.com/danmuck/dmapctl/internal/protocol"
	"github.com/danmuck/dmapctl/internal/protocol/codes"
	"github.com/danmuck/dmapctl/internal/protocol/tlv"
	"github.com/danmuck/dmapctl/internal/protocol/value"
)

var errNoValue = errors.New("dmap: no current value")

// Key describes the record whose value is next to be decoded.
type Key struct {
	Name value.Name
	Tag  tlv.Tag
	// Kind is the dictionary kind, zero when the tag is unknown.
	Kind codes.Kind
}

// Decoder pulls sibling records from one buffer level. It keeps the record
// whose key was last returned and at most one record read ahead.
type Decoder struct {
	dict  *codes.Dictionary
	rest  []byte
	base  int
	off   int
	path  []string
	ahead lookahead
	cur   entry
	ready bool
}

// NewDecoder reads the root level of buf.
func NewDecoder(dict *codes.Dictionary, buf []byte) *Decoder {
	return &Decoder{dict: dict, rest: buf}
}

// Path is the chain of field names leading to this level.
func (d *Decoder) Path() []string {
	return d.path
}

// Done reports whether every record at this level has been consumed.
func (d *Decoder) Done() bool {
	return !d.ready && !d.ahead.pending() && len(d.rest) == 0
}

func (d *Decoder) pull() (entry, bool, error) {
	if e, ok := d.ahead.take(); ok {
		return e, true, nil
	}
	if len(d.rest) == 0 {
		return entry{}, false, nil
	}
	rec, rest, err := tlv.ReadRecord(d.rest)
	if err != nil {
		return entry{}, false, &protocol.Error{
			Phase:  protocol.PhaseDecode,
			Kind:   protocol.ErrTruncatedInput,
			Path:   d.path,
			Detail: "record at offset " + strconv.Itoa(d.base+d.off),
			Cause:  err,
		}
	}
	e := entry{rec: rec, off: d.base + d.off}
	e.code, e.known = d.dict.Lookup(rec.Tag)
	d.off += rec.Len()
	d.rest = rest
	return e, true, nil
}

// NextKey advances to the next record and returns its key. A value left
// unconsumed by the caller is skipped. ok is false at the end of this level.
func (d *Decoder) NextKey() (Key, bool, error) {
	d.ready = false
	e, ok, err := d.pull()
	if err != nil || !ok {
		return Key{}, false, err
	}
	d.cur = e
	d.ready = true
	return keyOf(e), true, nil
}

func keyOf(e entry) Key {
	if !e.known {
		return Key{Name: value.Code(e.rec.Tag), Tag: e.rec.Tag}
	}
	return Key{Name: value.Named(e.code.Name), Tag: e.rec.Tag, Kind: e.code.Kind}
}

func (d *Decoder) take() (entry, error) {
	if !d.ready {
		return entry{}, protocol.Errorf(protocol.PhaseDecode, protocol.ErrUnbalanced, d.path, "%v", errNoValue)
	}
	d.ready = false
	return d.cur, nil
}

// Skip discards the current value.
func (d *Decoder) Skip() {
	d.ready = false
}

// Value decodes the current record using its dictionary kind, falling back
// to an Unknown payload for tags the dictionary does not know.
func (d *Decoder) Value() (value.Value, error) {
	e, err := d.take()
	if err != nil {
		return value.Value{}, err
	}
	if !e.known {
		return value.Unknown(e.rec.Body), nil
	}
	return decodeBody(d.dict, e, e.code.Kind, d.path)
}

// ValueAs decodes the current record as kind regardless of the dictionary.
func (d *Decoder) ValueAs(kind codes.Kind) (value.Value, error) {
	e, err := d.take()
	if err != nil {
		return value.Value{}, err
	}
	return decodeBody(d.dict, e, kind, d.path)
}

// Raw returns the current record undecoded.
func (d *Decoder) Raw() (tlv.Record, error) {
	e, err := d.take()
	if err != nil {
		return tlv.Record{}, err
	}
	return e.rec, nil
}

// Nested returns a decoder over the body of the current record, which the
// dictionary must declare as a container.
func (d *Decoder) Nested() (*Decoder, error) {
	e, err := d.take()
	if err != nil {
		return nil, err
	}
	if !e.known || e.code.Kind != codes.KindContainer {
		k := keyOf(e)
		return nil, protocol.Errorf(protocol.PhaseDecode, protocol.ErrTypeMismatch, d.path,
			"%s is %s, not a container", k.Name, kindLabel(k))
	}
	return d.child(e), nil
}

func (d *Decoder) child(e entry) *Decoder {
	sub := &Decoder{
		dict: d.dict,
		rest: e.rec.Body,
		base: e.off + tlv.HeaderLen,
		path: appendPath(d.path, keyOf(e).Name.String()),
	}
	return sub
}

// Repeated calls fn for the current record and for every directly following
// sibling that shares its tag. fn consumes the current value through Value,
// Nested or Raw. The first record with another tag is held back so the next
// NextKey returns it.
func (d *Decoder) Repeated(fn func() error) error {
	if !d.ready {
		return protocol.Errorf(protocol.PhaseDecode, protocol.ErrUnbalanced, d.path, "%v", errNoValue)
	}
	tag := d.cur.rec.Tag
	for {
		if err := fn(); err != nil {
			return err
		}
		d.ready = false
		e, ok, err := d.pull()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if e.rec.Tag != tag {
			if !d.ahead.push(e) {
				return protocol.Errorf(protocol.PhaseDecode, protocol.ErrUnbalanced, d.path,
					"record at offset %d read past a pending record", e.off)
			}
			return nil
		}
		d.cur = e
		d.ready = true
	}
}

// decodeBody interprets a record body as kind.
func decodeBody(dict *codes.Dictionary, e entry, kind codes.Kind, path []string) (value.Value, error) {
	body := e.rec.Body
	label := keyOf(e).Name.String()
	if w := kind.Width(); w > 0 && len(body) != w {
		return value.Value{}, protocol.Errorf(protocol.PhaseDecode, protocol.ErrWidthMismatch, path,
			"%s declares %s (%d bytes), body has %d", label, kind, w, len(body))
	}
	switch kind {
	case codes.KindI8:
		return value.I8(int8(body[0])), nil
	case codes.KindU8:
		return value.U8(body[0]), nil
	case codes.KindI16:
		return value.I16(int16(binary.BigEndian.Uint16(body))), nil
	case codes.KindU16:
		return value.U16(binary.BigEndian.Uint16(body)), nil
	case codes.KindI32:
		return value.I32(int32(binary.BigEndian.Uint32(body))), nil
	case codes.KindU32, codes.KindTimestamp, codes.KindVersion:
		return value.U32(binary.BigEndian.Uint32(body)), nil
	case codes.KindI64:
		return value.I64(int64(binary.BigEndian.Uint64(body))), nil
	case codes.KindU64:
		return value.U64(binary.BigEndian.Uint64(body)), nil
	case codes.KindString:
		if !utf8.Valid(body) {
			return value.Value{}, protocol.Errorf(protocol.PhaseDecode, protocol.ErrInvalidUTF8, path,
				"%s at offset %d", label, e.off)
		}
		return value.String(string(body)), nil
	case codes.KindContainer:
		items, err := decodeLevel(dict, body, e.off+tlv.HeaderLen, appendPath(path, label))
		if err != nil {
			return value.Value{}, err
		}
		return value.Container(items...), nil
	}
	return value.Value{}, protocol.Errorf(protocol.PhaseDecode, protocol.ErrUnknownTypeKind, path,
		"%s has kind %d", label, uint16(kind))
}

func decodeLevel(dict *codes.Dictionary, buf []byte, base int, path []string) ([]value.Item, error) {
	d := &Decoder{dict: dict, rest: buf, base: base, path: path}
	items := make([]value.Item, 0, 4)
	for {
		key, ok, err := d.NextKey()
		if err != nil {
			return nil, err
		}
		if !ok {
			return items, nil
		}
		v, err := d.Value()
		if err != nil {
			return nil, err
		}
		items = append(items, value.Item{Name: key.Name, Value: v})
	}
}

// Decode decodes every root-level record of buf into the value tree.
func Decode(buf []byte, dict *codes.Dictionary) ([]value.Item, error) {
	return decodeLevel(dict, buf, 0, nil)
}

// DecodeSingle decodes a buffer that must hold exactly one root record.
func DecodeSingle(buf []byte, dict *codes.Dictionary) (value.Item, error) {
	if len(buf) == 0 {
		return value.Item{}, protocol.Errorf(protocol.PhaseDecode, protocol.ErrTruncatedInput, nil, "empty input")
	}
	d := NewDecoder(dict, buf)
	key, _, err := d.NextKey()
	if err != nil {
		return value.Item{}, err
	}
	v, err := d.Value()
	if err != nil {
		return value.Item{}, err
	}
	if !d.Done() {
		return value.Item{}, protocol.Errorf(protocol.PhaseDecode, protocol.ErrTrailingData, nil,
			"%d bytes after %s", len(d.rest), key.Name)
	}
	return value.Item{Name: key.Name, Value: v}, nil
}

func kindLabel(k Key) string {
	if k.Kind == 0 {
		return "unknown"
	}
	return k.Kind.String()
}

func appendPath(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}
