package tlv

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/dmapctl/internal/protocol"
)

func TestReadRecordSplitsTagLengthBody(t *testing.T) {
	buf := []byte{'m', 's', 't', 't', 0, 0, 0, 4, 0, 0, 0, 200, 'x'}
	rec, rest, err := ReadRecord(buf)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if rec.Tag != (Tag{'m', 's', 't', 't'}) {
		t.Fatalf("unexpected tag: %s", rec.Tag)
	}
	if !bytes.Equal(rec.Body, []byte{0, 0, 0, 200}) {
		t.Fatalf("unexpected body: %v", rec.Body)
	}
	if !bytes.Equal(rest, []byte{'x'}) {
		t.Fatalf("unexpected rest: %v", rest)
	}
}

func TestReadRecordShortHeaderIsTruncated(t *testing.T) {
	_, _, err := ReadRecord([]byte{'m', 's', 't'})
	if !errors.Is(err, ErrShortRecordHeader) {
		t.Fatalf("expected ErrShortRecordHeader, got %v", err)
	}
	if !errors.Is(err, protocol.ErrTruncatedInput) {
		t.Fatalf("expected ErrTruncatedInput, got %v", err)
	}
}

func TestReadRecordShortBodyIsTruncated(t *testing.T) {
	_, _, err := ReadRecord([]byte{'m', 'i', 'n', 'm', 0, 0, 0, 5, 'a', 'b'})
	if !errors.Is(err, ErrShortRecordBody) {
		t.Fatalf("expected ErrShortRecordBody, got %v", err)
	}
	if !errors.Is(err, protocol.ErrTruncatedInput) {
		t.Fatalf("expected ErrTruncatedInput, got %v", err)
	}
}

func TestReadRecordHugeLengthDoesNotOverflow(t *testing.T) {
	_, _, err := ReadRecord([]byte{'a', 'b', 'c', 'd', 0xff, 0xff, 0xff, 0xff, 1})
	if !errors.Is(err, protocol.ErrTruncatedInput) {
		t.Fatalf("expected ErrTruncatedInput, got %v", err)
	}
}

func TestSplitSiblings(t *testing.T) {
	var buf []byte
	var err error
	for _, r := range []Record{
		{Tag: Tag{'a', 'a', 'a', 'a'}, Body: []byte{1}},
		{Tag: Tag{'b', 'b', 'b', 'b'}, Body: nil},
		{Tag: Tag{'c', 'c', 'c', 'c'}, Body: []byte("hello")},
	} {
		buf, err = AppendRecord(buf, r)
		if err != nil {
			t.Fatalf("append record: %v", err)
		}
	}
	recs, err := Split(buf)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if string(recs[2].Body) != "hello" || len(recs[1].Body) != 0 {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestWriterBackpatchesNestedContainers(t *testing.T) {
	w := NewWriter(0)
	w.Tag(Tag{'o', 'u', 't', 'r'})
	w.Open()
	w.Tag(Tag{'m', 's', 't', 't'})
	w.Uint32(200)
	w.Tag(Tag{'i', 'n', 'n', 'r'})
	w.Open()
	w.Tag(Tag{'m', 'i', 'n', 'm'})
	if err := w.String("abc"); err != nil {
		t.Fatalf("string: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close inner: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close outer: %v", err)
	}
	if w.Depth() != 0 {
		t.Fatalf("expected depth 0, got %d", w.Depth())
	}

	want := []byte{
		'o', 'u', 't', 'r', 0, 0, 0, 31,
		'm', 's', 't', 't', 0, 0, 0, 4, 0, 0, 0, 200,
		'i', 'n', 'n', 'r', 0, 0, 0, 11,
		'm', 'i', 'n', 'm', 0, 0, 0, 3, 'a', 'b', 'c',
	}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("unexpected bytes:\n got=%v\nwant=%v", w.Bytes(), want)
	}
}

func TestWriterCloseWithoutOpenIsUnbalanced(t *testing.T) {
	w := NewWriter(8)
	if err := w.Close(); !errors.Is(err, protocol.ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
}

func TestWriterRewindErasesSpeculativeTagAndPlaceholder(t *testing.T) {
	w := NewWriter(0)
	w.Tag(Tag{'k', 'e', 'e', 'p'})
	w.Uint8(7)
	before := append([]byte(nil), w.Bytes()...)

	mark := w.Mark()
	w.Tag(Tag{'g', 'o', 'n', 'e'})
	w.Open()
	w.Tag(Tag{'d', 'e', 'e', 'p'})
	w.Uint16(1)
	w.Rewind(mark)

	if w.Depth() != 0 {
		t.Fatalf("expected rewound placeholder to be dropped, depth=%d", w.Depth())
	}
	if !bytes.Equal(w.Bytes(), before) {
		t.Fatalf("rewind leaked bytes: %v", w.Bytes())
	}
}

func TestWriterRewindKeepsOuterContainer(t *testing.T) {
	w := NewWriter(0)
	w.Tag(Tag{'o', 'u', 't', 'r'})
	w.Open()
	mark := w.Mark()
	w.Tag(Tag{'o', 'p', 't', '1'})
	w.Rewind(mark)
	if w.Depth() != 1 {
		t.Fatalf("expected outer container still open, depth=%d", w.Depth())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	want := []byte{'o', 'u', 't', 'r', 0, 0, 0, 0}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("unexpected bytes: %v", w.Bytes())
	}
}

func TestTagStringAndParse(t *testing.T) {
	tag := Tag{'m', 'l', 'i', 't'}
	if tag.String() != "mlit" {
		t.Fatalf("unexpected tag string: %s", tag)
	}
	parsed, err := ParseTag("mlit")
	if err != nil || parsed != tag {
		t.Fatalf("parse printable tag: %v %v", parsed, err)
	}

	raw := Tag{0x00, 0x01, 0xfe, 0xff}
	if raw.String() != "0x0001feff" {
		t.Fatalf("unexpected hex tag string: %s", raw)
	}
	parsed, err = ParseTag(raw.String())
	if err != nil || parsed != raw {
		t.Fatalf("parse hex tag: %v %v", parsed, err)
	}
	if _, err := ParseTag("toolong"); err == nil {
		t.Fatalf("expected error for malformed tag")
	}
}

func TestTagFromUint32(t *testing.T) {
	tag := TagFromUint32(0x6d737474)
	if tag.String() != "mstt" {
		t.Fatalf("unexpected tag: %s", tag)
	}
	if tag.Uint32() != 0x6d737474 {
		t.Fatalf("unexpected uint32: %x", tag.Uint32())
	}
}
