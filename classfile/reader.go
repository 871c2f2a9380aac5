package classfile

import (
	"encoding/binary"
	"math"

	"github.com/javelin-vm/javelin/errz"
)

// reader is a sequential big-endian cursor over a byte buffer. It carries a
// sticky error: once a read fails on truncation, every later read is a no-op
// and Err reports the first failure.
type reader struct {
	data []byte
	off  int
	err  error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) Err() error {
	return r.err
}

func (r *reader) truncated(need int) {
	if r.err == nil {
		r.err = errz.Newf(errz.ErrFormat,
			"truncated input: need %d bytes at offset %d, have %d",
			need, r.off, len(r.data)-r.off)
	}
}

func (r *reader) u1() uint8 {
	if r.err != nil {
		return 0
	}
	if r.off+1 > len(r.data) {
		r.truncated(1)
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) u2() uint16 {
	if r.err != nil {
		return 0
	}
	if r.off+2 > len(r.data) {
		r.truncated(2)
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) u4() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.data) {
		r.truncated(4)
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) f4() float32 {
	return math.Float32frombits(r.u4())
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.truncated(n)
		return nil
	}
	v := r.data[r.off : r.off+n]
	r.off += n
	return v
}
