package tlv

import (
	"encoding/binary"
	"math"

	"github.com/danmuck/dmapctl/internal/protocol"
)

// Writer appends records to a growing buffer. Containers are written with a
// zero length placeholder that Close patches once the body is complete; the
// offsets of unpatched placeholders form a stack, one entry per open
// container. The document root is implicit and never on the stack.
type Writer struct {
	buf  []byte
	open []int
}

func NewWriter(sizeHint int) *Writer {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the written buffer. It is only complete once Depth is zero.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// Depth is the number of containers opened and not yet closed.
func (w *Writer) Depth() int {
	return len(w.open)
}

// Tag writes the 4 tag bytes of a new record.
func (w *Writer) Tag(t Tag) {
	w.buf = append(w.buf, t[:]...)
}

// Body writes a length prefix followed by b.
func (w *Writer) Body(b []byte) error {
	if uint64(len(b)) > math.MaxUint32 {
		return protocol.ErrRecordTooLarge
	}
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(b)))
	w.buf = append(w.buf, b...)
	return nil
}

func (w *Writer) String(s string) error {
	if uint64(len(s)) > math.MaxUint32 {
		return protocol.ErrRecordTooLarge
	}
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(s)))
	w.buf = append(w.buf, s...)
	return nil
}

func (w *Writer) Uint8(v uint8) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, 1)
	w.buf = append(w.buf, v)
}

func (w *Writer) Uint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, 2)
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) Uint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, 4)
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Uint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, 8)
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// Open reserves a length placeholder for a container whose tag was just written.
func (w *Writer) Open() {
	w.buf = append(w.buf, 0, 0, 0, 0)
	w.open = append(w.open, len(w.buf))
}

// Close patches the innermost open placeholder with the body size written since Open.
func (w *Writer) Close() error {
	if len(w.open) == 0 {
		return protocol.ErrUnbalanced
	}
	start := w.open[len(w.open)-1]
	w.open = w.open[:len(w.open)-1]
	n := len(w.buf) - start
	if uint64(n) > math.MaxUint32 {
		return protocol.ErrRecordTooLarge
	}
	binary.BigEndian.PutUint32(w.buf[start-4:start], uint32(n))
	return nil
}

// Mark returns a rewind point for a speculative write.
func (w *Writer) Mark() int {
	return len(w.buf)
}

// Rewind erases everything written since mark, including any containers
// opened after it.
func (w *Writer) Rewind(mark int) {
	if mark < 0 || mark > len(w.buf) {
		return
	}
	for len(w.open) > 0 && w.open[len(w.open)-1] > mark {
		w.open = w.open[:len(w.open)-1]
	}
	w.buf = w.buf[:mark]
}

// Reset empties the writer for reuse.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.open = w.open[:0]
}
