package grib2

// parseBitmap expands the MSB-first bit field of Section 6 to one flag per
// grid point.
func parseBitmap(b []byte, n int) ([]bool, error) {
	if need := (n + 7) / 8; need > len(b) {
		return nil, outOfRange(6, "bitmap of %d points needs %d bytes, got %d", n, need, len(b))
	}
	bm := make([]bool, n)
	for i := range bm {
		bm[i] = b[i>>3]&(0x80>>uint(i&7)) != 0
	}
	return bm, nil
}

// countSet returns the number of points present in the bitmap.
func countSet(bitmap []bool) int {
	n := 0
	for _, v := range bitmap {
		if v {
			n++
		}
	}
	return n
}

// ApplyBitmap scatters the packed values over the points whose bit is set
// and fills the others with missing. A nil bitmap returns a copy of values.
func ApplyBitmap(values []float64, bitmap []bool, missing float64) ([]float64, error) {
	if bitmap == nil {
		return append([]float64(nil), values...), nil
	}
	if set := countSet(bitmap); set != len(values) {
		return nil, failure(6, "bitmap has %d points set, got %d values", set, len(values))
	}
	out := make([]float64, len(bitmap))
	k := 0
	for i, present := range bitmap {
		if present {
			out[i] = values[k]
			k++
		} else {
			out[i] = missing
		}
	}
	return out, nil
}
