package bson

import (
	"encoding/binary"
	"math"
)

// reader is a forward-cursor reader over a contiguous byte region. It
// never retains a copy of buf; every returned slice borrows it.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

// offset returns the reader's current cursor position, used to annotate
// InternalError with a byte offset.
func (r *reader) offset() int { return r.pos }

// remaining returns the number of unread bytes.
func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, newInternal(r.pos, "short read: want %d bytes, have %d", n, r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readU8() (byte, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readI32() (int32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readI64() (int64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *reader) readU64() (uint64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) readF64() (float64, error) {
	u, err := r.readU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// readCString reads a BSON C-string: UTF-8 bytes up to (and consuming)
// the terminating NUL. The NUL is not included in the returned string.
func (r *reader) readCString() (string, error) {
	start := r.pos
	for i := r.pos; i < len(r.buf); i++ {
		if r.buf[i] == 0x00 {
			s := string(r.buf[start:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", newInternal(start, "unterminated cstring")
}

// writer is an append-only byte builder.
type writer struct {
	buf []byte
}

func newWriter() *writer {
	return &writer{buf: make([]byte, 0, 64)}
}

func newWriterCap(capacity int) *writer {
	return &writer{buf: make([]byte, 0, capacity)}
}

func (w *writer) Bytes() []byte { return w.buf }
func (w *writer) Len() int      { return len(w.buf) }

func (w *writer) writeBytes(b []byte) { w.buf = append(w.buf, b...) }
func (w *writer) writeU8(b byte)      { w.buf = append(w.buf, b) }

func (w *writer) writeI32(v int32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) writeU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) writeI64(v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) writeU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) writeF64(v float64) {
	w.writeU64(math.Float64bits(v))
}

// writeCString appends s followed by a NUL terminator. s must not
// contain an interior NUL; callers validate that at a higher level
// (DocumentBuilder.Append for keys, writePayload for regex fields)
// since the buffer layer has no key/string context.
func (w *writer) writeCString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0x00)
}

// patchU32At overwrites the 4 bytes at offset with v, little-endian.
// Used to backfill a document's self-referential length prefix.
func (w *writer) patchU32At(offset int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[offset:offset+4], v)
}
