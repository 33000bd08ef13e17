package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadUintWidths(t *testing.T) {
	// 1010 1100 | 0011 0101 | 1111 0000
	buf := []byte{0xAC, 0x35, 0xF0}
	r := New(buf)

	tests := []struct {
		bits int
		want uint64
	}{
		{1, 1},
		{3, 0b010},
		{4, 0b1100},
		{6, 0b001101},
		{5, 0b01111},
		{5, 0b10000},
	}
	for _, tt := range tests {
		got, err := r.ReadUint(tt.bits)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "width %d", tt.bits)
	}
	assert.Equal(t, 0, r.Remaining())
}

func TestReadUintAlignedFastPath(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F}
	r := New(buf)

	v8, err := r.ReadUint(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x01), v8)

	v16, err := r.ReadUint(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0203), v16)

	v32, err := r.ReadUint(32)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x04050607), v32)

	v64, err := r.ReadUint(64)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x08090A0B0C0D0E0F), v64)
}

func TestReadUintUnaligned64(t *testing.T) {
	buf := []byte{0x0F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xF0}
	r := New(buf)
	require.NoError(t, r.Skip(4))
	v, err := r.ReadUint(64)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), v)
}

func TestReadPastEnd(t *testing.T) {
	r := New([]byte{0xFF})
	_, err := r.ReadUint(9)
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, 0, r.Pos(), "failed read must not move the cursor")

	_, err = r.ReadUint(65)
	require.Error(t, err)

	require.ErrorIs(t, r.Skip(9), ErrOutOfRange)
	require.ErrorIs(t, r.SeekBit(9), ErrOutOfRange)

	_, err = r.ReadUints(3, 3)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestReadZeroWidth(t *testing.T) {
	r := New(nil)
	v, err := r.ReadUint(0)
	require.NoError(t, err)
	assert.Zero(t, v)

	vals, err := r.ReadUints(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 0, 0, 0}, vals)
}

func TestReadIntAndSignMagnitude(t *testing.T) {
	// 0b1111 (two's complement -1, sign-magnitude -7), 0b0101 (5 both ways)
	r := New([]byte{0xF5, 0xF5})
	v, err := r.ReadInt(4)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
	v, err = r.ReadInt(4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = r.ReadSignMagnitude(4)
	require.NoError(t, err)
	assert.Equal(t, int64(-7), v)
	v, err = r.ReadSignMagnitude(4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestAlign(t *testing.T) {
	r := New([]byte{0xFF, 0x80})
	_, err := r.ReadUint(3)
	require.NoError(t, err)
	r.Align()
	assert.Equal(t, 8, r.Pos())
	r.Align()
	assert.Equal(t, 8, r.Pos(), "aligned cursor stays put")
	b, err := r.ReadBit()
	require.NoError(t, err)
	assert.True(t, b)
	assert.Equal(t, 1, r.BytePos())
}

func TestIndependentCursors(t *testing.T) {
	buf := []byte{0x12, 0x34}
	a, b := New(buf), New(buf)
	va, err := a.ReadUint(8)
	require.NoError(t, err)
	vb, err := b.ReadUint(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x12), va)
	assert.Equal(t, uint64(0x1234), vb)
	assert.Equal(t, []byte{0x12, 0x34}, buf)
}

func TestOctetHelpers(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		sm   int64
		u    uint64
	}{
		{"positive", []byte{0x00, 0x10}, 16, 16},
		{"negative 3", []byte{0x80, 0x03}, -3, 0x8003},
		{"negative 257", []byte{0x81, 0x01}, -257, 0x8101},
		{"one octet", []byte{0x85}, -5, 0x85},
		{"four octets", []byte{0x80, 0x00, 0x00, 0x01}, -1, 0x80000001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sm, SignMagnitude(tt.in))
			assert.Equal(t, tt.u, Uint(tt.in))
		})
	}
	assert.True(t, AllOnes([]byte{0xFF, 0xFF}))
	assert.False(t, AllOnes([]byte{0xFF, 0xFE}))
	assert.False(t, AllOnes(nil))
}

func TestMask(t *testing.T) {
	for n, want := range map[int]uint64{0: 0, -1: 0, 1: 1, 8: 0xFF, 12: 0xFFF, 32: 0xFFFFFFFF, 64: ^uint64(0), 70: ^uint64(0)} {
		assert.Equal(t, want, Mask(n), "Mask(%d)", n)
	}
}
