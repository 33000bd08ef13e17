package grib2

import (
	"gribdecode.com/grib2/reader"
)

// UnpackInput is everything an engine needs to expand Section 7.
type UnpackInput struct {
	Data    []byte // Section 7 payload
	Rep     *DataRepresentation
	Count   int     // values packed in Data
	Missing float64 // sentinel for missing points
	Codec   ImageCodec
}

// Unpacker expands a Section 7 payload into exactly in.Count values.
type Unpacker func(in UnpackInput) ([]float64, error)

// constantField is the field of a packing with zero bits per value.
func constantField(in UnpackInput) []float64 {
	v := in.Rep.scaleFunc()(0)
	fld := make([]float64, in.Count)
	for i := range fld {
		fld[i] = v
	}
	return fld
}

// unpackSimple expands grid point data with simple packing (template 7.0).
func unpackSimple(in UnpackInput) ([]float64, error) {
	if in.Count == 0 {
		return []float64{}, nil
	}
	if in.Rep.Bits == 0 {
		return constantField(in), nil
	}
	bits := int(in.Rep.Bits)
	if need := (in.Count*bits + 7) / 8; need > len(in.Data) {
		return nil, outOfRange(7, "%d values of %d bits need %d bytes, got %d", in.Count, bits, need, len(in.Data))
	}
	scale := in.Rep.scaleFunc()
	br := reader.New(in.Data)
	fld := make([]float64, in.Count)
	for i := range fld {
		x, err := br.ReadUint(bits)
		if err != nil {
			return nil, classify(7, err)
		}
		fld[i] = scale(int64(x))
	}
	return fld, nil
}
