package grib2

import (
	"encoding/binary"
	"math"
)

// unpackIEEE expands IEEE floating point data (template 7.4). Values are
// stored big-endian and carry no scaling.
func unpackIEEE(in UnpackInput) ([]float64, error) {
	size := 4
	if in.Rep.Precision == 2 {
		size = 8
	}
	if need := in.Count * size; need > len(in.Data) {
		return nil, outOfRange(7, "%d values of %d bytes need %d bytes, got %d", in.Count, size, need, len(in.Data))
	}
	fld := make([]float64, in.Count)
	for i := range fld {
		if size == 4 {
			fld[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(in.Data[i*4:])))
		} else {
			fld[i] = math.Float64frombits(binary.BigEndian.Uint64(in.Data[i*8:]))
		}
	}
	return fld, nil
}
