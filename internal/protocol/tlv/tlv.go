package tlv

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/danmuck/dmapctl/internal/protocol"
)

// HeaderLen is the size of a record's tag plus length prefix.
const HeaderLen = 8

var (
	ErrShortRecordHeader = fmt.Errorf("%w: short record header", protocol.ErrTruncatedInput)
	ErrShortRecordBody   = fmt.Errorf("%w: short record body", protocol.ErrTruncatedInput)
)

// Tag is the 4-byte field identifier that opens every record.
type Tag [4]byte

// TagFromUint32 reinterprets a content-code number as its big-endian tag bytes.
func TagFromUint32(v uint32) Tag {
	var t Tag
	binary.BigEndian.PutUint32(t[:], v)
	return t
}

// Uint32 returns the tag read as a big-endian number.
func (t Tag) Uint32() uint32 {
	return binary.BigEndian.Uint32(t[:])
}

// String renders printable tags verbatim and anything else as 0x-prefixed hex.
func (t Tag) String() string {
	for _, c := range t {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", t.Uint32())
		}
	}
	return string(t[:])
}

// ParseTag accepts the forms produced by Tag.String.
func ParseTag(s string) (Tag, error) {
	if len(s) == 4 {
		var t Tag
		copy(t[:], s)
		return t, nil
	}
	if len(s) == 10 && (s[:2] == "0x" || s[:2] == "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return Tag{}, fmt.Errorf("tlv: invalid tag %q: %w", s, err)
		}
		return TagFromUint32(uint32(v)), nil
	}
	return Tag{}, fmt.Errorf("tlv: invalid tag %q", s)
}

// Record is one tag-length-value unit. Body aliases the buffer it was read from.
type Record struct {
	Tag  Tag
	Body []byte
}

// Len is the encoded size of the record including its header.
func (r Record) Len() int {
	return HeaderLen + len(r.Body)
}

// ReadRecord reads one record from the front of buf and returns the remainder.
func ReadRecord(buf []byte) (Record, []byte, error) {
	if len(buf) < HeaderLen {
		return Record{}, buf, ErrShortRecordHeader
	}
	var rec Record
	copy(rec.Tag[:], buf[0:4])
	n := binary.BigEndian.Uint32(buf[4:8])
	rest := buf[HeaderLen:]
	if uint64(n) > uint64(len(rest)) {
		return Record{}, buf, ErrShortRecordBody
	}
	rec.Body = rest[:n:n]
	return rec, rest[n:], nil
}

// Split reads sibling records until buf is exhausted.
func Split(buf []byte) ([]Record, error) {
	out := make([]Record, 0, 4)
	for len(buf) > 0 {
		rec, rest, err := ReadRecord(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
		buf = rest
	}
	return out, nil
}

// AppendRecord appends the encoded form of r to dst.
func AppendRecord(dst []byte, r Record) ([]byte, error) {
	if uint64(len(r.Body)) > math.MaxUint32 {
		return dst, protocol.ErrRecordTooLarge
	}
	dst = append(dst, r.Tag[:]...)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(r.Body)))
	return append(dst, r.Body...), nil
}

func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
