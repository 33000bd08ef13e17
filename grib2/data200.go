package grib2

import (
	"gribdecode.com/grib2/reader"
)

// unpackRunLength expands run-length packed level values (template 7.200).
// Codes up to MV are levels; every code above MV that follows is a digit of
// the run length in base 2^bits-1-MV, least significant first.
func unpackRunLength(in UnpackInput) ([]float64, error) {
	rl := in.Rep.RunLength
	if rl == nil {
		return nil, failure(5, "template %d without levels", in.Rep.Template)
	}
	bits := int(in.Rep.Bits)
	mv := uint64(rl.MaxLevel)
	radix := int64(reader.Mask(bits) - mv)
	codes := len(in.Data) * 8 / bits

	br := reader.New(in.Data)
	fld := make([]float64, 0, in.Count)
	for i := 0; i < codes; {
		v, err := br.ReadUint(bits)
		if err != nil {
			return nil, classify(7, err)
		}
		i++
		if len(fld) == in.Count {
			// only padding may follow a complete field
			if v == 0 && (codes-i+1)*bits < 8 {
				break
			}
			return nil, failure(7, "run-length data continues past %d values", in.Count)
		}
		if v > mv {
			return nil, failure(7, "run digit %d without a level at code %d", v, i-1)
		}
		var value float64
		switch {
		case v == 0:
			value = in.Missing
		case v <= uint64(len(rl.Levels)):
			value = rl.Levels[v-1]
		default:
			return nil, failure(7, "level %d of %d", v, len(rl.Levels))
		}

		run, factor := int64(1), int64(1)
		for i < codes {
			save := br.Pos()
			d, err := br.ReadUint(bits)
			if err != nil {
				return nil, classify(7, err)
			}
			if d <= mv {
				if err := br.SeekBit(save); err != nil {
					return nil, classify(7, err)
				}
				break
			}
			i++
			run += factor * int64(d-mv-1)
			factor *= radix
			if run > int64(in.Count) || factor > int64(maxTotalPoints)*radix {
				return nil, failure(7, "run of %d values exceeds field of %d", run, in.Count)
			}
		}
		if int64(len(fld))+run > int64(in.Count) {
			return nil, failure(7, "runs expand past %d values", in.Count)
		}
		for ; run > 0; run-- {
			fld = append(fld, value)
		}
	}
	if len(fld) != in.Count {
		return nil, failure(7, "runs expand to %d values, want %d", len(fld), in.Count)
	}
	return fld, nil
}
