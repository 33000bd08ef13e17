package grib2

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBitmap(t *testing.T) {
	bm, err := parseBitmap([]byte{0xA0, 0x80}, 9)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, false, false, false, false, false, true}, bm)
	assert.Equal(t, 3, countSet(bm))

	_, err = parseBitmap([]byte{0xFF}, 9)
	assert.ErrorIs(t, err, ErrOutOfRange)

	empty, err := parseBitmap(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestApplyBitmap(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		bitmap  []bool
		want    []float64
		wantErr bool
	}{
		{"no bitmap", []float64{1, 2}, nil, []float64{1, 2}, false},
		{"all set", []float64{1, 2}, []bool{true, true}, []float64{1, 2}, false},
		{"scatter", []float64{1, 2}, []bool{false, true, false, true}, []float64{-1, 1, -1, 2}, false},
		{"none set", nil, []bool{false, false}, []float64{-1, -1}, false},
		{"too few values", []float64{1}, []bool{true, true}, nil, true},
		{"too many values", []float64{1, 2, 3}, []bool{true, true}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyBitmap(tt.values, tt.bitmap, -1)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDecodeFailure)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyBitmapCopies(t *testing.T) {
	values := []float64{1, 2}
	got, err := ApplyBitmap(values, nil, math.NaN())
	require.NoError(t, err)
	got[0] = 100
	assert.Equal(t, 1.0, values[0])
}

func TestMessageAt(t *testing.T) {
	grid := latLonGrid{ni: 3, nj: 1, lo2: 2000000, di: 1000000, dj: 1000000}
	raw := message(0,
		section1(2024, 1, 1, 0),
		latLonSection3(grid),
		section4(0, product0(0, 0, 0, 1, 0)),
		section5(0, 2, simple5(0, 0, 0, 8)),
		bitmapSection([]bool{true, false, true}),
		section7(packBits(8, 3, 4)),
	)
	m, err := DecodeMessage(raw)
	require.NoError(t, err)

	v, ok := m.At(0)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	v, ok = m.At(1)
	assert.False(t, ok)
	assert.True(t, math.IsNaN(v))
	_, ok = m.At(3)
	assert.False(t, ok)
	_, ok = m.At(-1)
	assert.False(t, ok)
}
