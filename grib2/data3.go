package grib2

import (
	"gribdecode.com/grib2/reader"
)

// spatialDescriptors are the extra descriptors that open a 7.3 payload:
// the first one or two original values and the overall minimum of the
// differences, each a sign-magnitude integer of DescriptorOctets octets.
type spatialDescriptors struct {
	ival1, ival2 int64
	minsd        int64
}

func readSpatialDescriptors(br *reader.BitReader, c *ComplexParams) (spatialDescriptors, error) {
	var sd spatialDescriptors
	bits := int(c.DescriptorOctets) * 8
	var err error
	if sd.ival1, err = br.ReadSignMagnitude(bits); err != nil {
		return sd, err
	}
	if c.SpatialOrder == 2 {
		if sd.ival2, err = br.ReadSignMagnitude(bits); err != nil {
			return sd, err
		}
	}
	if sd.minsd, err = br.ReadSignMagnitude(bits); err != nil {
		return sd, err
	}
	br.Align()
	return sd, nil
}

// undo reverses first or second order differencing in place. Missing points
// are not part of the differenced sequence and are skipped.
func (sd spatialDescriptors) undo(values []int64, miss []uint8, order uint8) error {
	seen := 0
	var prev1, prev2 int64
	for i := range values {
		if miss[i] != notMissing {
			continue
		}
		switch {
		case seen == 0:
			values[i] = sd.ival1
		case seen == 1 && order == 2:
			values[i] = sd.ival2
		case order == 1:
			values[i] = values[i] + prev1 + sd.minsd
		case order == 2:
			values[i] = values[i] + 2*prev1 - prev2 + sd.minsd
		default:
			return failure(7, "spatial differencing order %d", order)
		}
		prev2, prev1 = prev1, values[i]
		seen++
	}
	return nil
}
