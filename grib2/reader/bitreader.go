// Package reader provides a bounds-checked big-endian bit cursor over a byte
// slice. Several readers may share one buffer; none of them writes to it.
package reader

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a read would go past the end of the buffer.
var ErrOutOfRange = errors.New("read out of range")

// BitReader reads MSB-first bit fields of arbitrary width.
type BitReader struct {
	buf []byte
	pos int // bit position
}

// New returns a reader positioned at the first bit of buf.
func New(buf []byte) *BitReader {
	return &BitReader{buf: buf}
}

// Len returns the buffer size in bits.
func (r *BitReader) Len() int { return len(r.buf) * 8 }

// Pos returns the current bit position.
func (r *BitReader) Pos() int { return r.pos }

// BytePos returns the index of the byte holding the next bit.
func (r *BitReader) BytePos() int { return r.pos / 8 }

// Remaining returns the number of unread bits.
func (r *BitReader) Remaining() int { return len(r.buf)*8 - r.pos }

// Align advances the cursor to the next octet boundary.
func (r *BitReader) Align() {
	if rem := r.pos % 8; rem != 0 {
		r.pos += 8 - rem
	}
}

// Skip advances the cursor by n bits.
func (r *BitReader) Skip(n int) error {
	if n < 0 || n > r.Remaining() {
		return fmt.Errorf("skip %d bits at bit %d of %d: %w", n, r.pos, r.Len(), ErrOutOfRange)
	}
	r.pos += n
	return nil
}

// SeekBit moves the cursor to an absolute bit position.
func (r *BitReader) SeekBit(pos int) error {
	if pos < 0 || pos > r.Len() {
		return fmt.Errorf("seek to bit %d of %d: %w", pos, r.Len(), ErrOutOfRange)
	}
	r.pos = pos
	return nil
}

// ReadBit reads a single bit.
func (r *BitReader) ReadBit() (bool, error) {
	v, err := r.ReadUint(1)
	return v == 1, err
}

// ReadUint reads an n-bit unsigned integer, 0 <= n <= 64.
func (r *BitReader) ReadUint(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, fmt.Errorf("invalid bit width %d", n)
	}
	if n == 0 {
		return 0, nil
	}
	if n > r.Remaining() {
		return 0, fmt.Errorf("read %d bits at bit %d of %d: %w", n, r.pos, r.Len(), ErrOutOfRange)
	}
	if r.pos%8 == 0 {
		off := r.pos / 8
		switch n {
		case 8:
			r.pos += 8
			return uint64(r.buf[off]), nil
		case 16:
			r.pos += 16
			return uint64(binary.BigEndian.Uint16(r.buf[off:])), nil
		case 32:
			r.pos += 32
			return uint64(binary.BigEndian.Uint32(r.buf[off:])), nil
		case 64:
			r.pos += 64
			return binary.BigEndian.Uint64(r.buf[off:]), nil
		}
	}
	var v uint64
	need := n
	for need > 0 {
		idx := r.pos / 8
		used := r.pos % 8
		avail := 8 - used
		take := avail
		if take > need {
			take = need
		}
		chunk := (r.buf[idx] >> (avail - take)) & byte(1<<take-1)
		v = v<<take | uint64(chunk)
		r.pos += take
		need -= take
	}
	return v, nil
}

// ReadInt reads an n-bit two's complement integer.
func (r *BitReader) ReadInt(n int) (int64, error) {
	v, err := r.ReadUint(n)
	if err != nil || n == 0 || n == 64 {
		return int64(v), err
	}
	if v&(1<<(n-1)) != 0 {
		v |= ^uint64(0) << n
	}
	return int64(v), nil
}

// ReadSignMagnitude reads an n-bit integer whose top bit is the sign and the
// remaining n-1 bits the magnitude, as GRIB stores negative numbers.
func (r *BitReader) ReadSignMagnitude(n int) (int64, error) {
	v, err := r.ReadUint(n)
	if err != nil || n == 0 {
		return 0, err
	}
	sign := uint64(1) << (n - 1)
	if v&sign != 0 {
		return -int64(v &^ sign), nil
	}
	return int64(v), nil
}

// ReadUints reads count consecutive n-bit values.
func (r *BitReader) ReadUints(n, count int) ([]uint64, error) {
	if n < 0 || n > 64 {
		return nil, fmt.Errorf("invalid bit width %d", n)
	}
	if count < 0 || n*count > r.Remaining() {
		return nil, fmt.Errorf("read %d×%d bits at bit %d of %d: %w", count, n, r.pos, r.Len(), ErrOutOfRange)
	}
	out := make([]uint64, count)
	if n == 0 {
		return out, nil
	}
	for i := range out {
		v, err := r.ReadUint(n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Uint decodes a big-endian unsigned integer of 1..8 octets.
func Uint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// SignMagnitude decodes a big-endian sign-magnitude integer of 1..8 octets.
func SignMagnitude(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	v := Uint(b)
	sign := uint64(1) << (uint(len(b))*8 - 1)
	if v&sign != 0 {
		return -int64(v &^ sign)
	}
	return int64(v)
}

// AllOnes reports whether every bit of b is set, the GRIB "missing" pattern.
func AllOnes(b []byte) bool {
	for _, c := range b {
		if c != 0xFF {
			return false
		}
	}
	return len(b) > 0
}

// Mask returns the n-bit value with every bit set (0 for n <= 0).
func Mask(n int) uint64 {
	if n <= 0 {
		return 0
	}
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(n) - 1
}
