package grib2

import (
	"gribdecode.com/grib2/reader"
)

// missing codes produced by group unpacking
const (
	notMissing = iota
	primaryMissing
	secondaryMissing
)

// groups holds the decoded group descriptors of a complex packed field.
type groups struct {
	refs    []uint64
	widths  []int
	lengths []int
}

// readGroups decodes the references, widths and lengths blocks. Each block
// starts on an octet boundary.
func readGroups(br *reader.BitReader, rep *DataRepresentation, count int) (*groups, error) {
	c := rep.Complex
	ng := int(c.Groups)
	g := &groups{}
	var err error
	if g.refs, err = br.ReadUints(int(rep.Bits), ng); err != nil {
		return nil, err
	}
	br.Align()

	rawWidths, err := br.ReadUints(int(c.WidthBits), ng)
	if err != nil {
		return nil, err
	}
	br.Align()
	g.widths = make([]int, ng)
	for i, w := range rawWidths {
		g.widths[i] = int(c.WidthReference) + int(w)
		if g.widths[i] > 32 {
			return nil, failure(7, "group %d is %d bits wide", i, g.widths[i])
		}
	}

	rawLengths, err := br.ReadUints(int(c.LengthBits), ng)
	if err != nil {
		return nil, err
	}
	br.Align()
	g.lengths = make([]int, ng)
	total := 0
	for i, l := range rawLengths {
		n := uint64(c.LengthReference) + l*uint64(c.LengthIncrement)
		if i == ng-1 {
			n = uint64(c.LastGroupLength)
		}
		if n > uint64(count) {
			return nil, failure(7, "group %d has %d values, field has %d", i, n, count)
		}
		g.lengths[i] = int(n)
		total += int(n)
	}
	if total != count {
		return nil, failure(7, "group lengths add up to %d, want %d", total, count)
	}
	return g, nil
}

// unpackComplex expands complex packing (7.2) and complex packing with
// spatial differencing (7.3).
func unpackComplex(in UnpackInput) ([]float64, error) {
	rep := in.Rep
	c := rep.Complex
	if c == nil {
		return nil, failure(5, "template %d without group parameters", rep.Template)
	}
	if in.Count == 0 {
		return []float64{}, nil
	}
	br := reader.New(in.Data)

	var sd spatialDescriptors
	if rep.Kind == PackingComplexSpatial {
		var err error
		if sd, err = readSpatialDescriptors(br, c); err != nil {
			return nil, classify(7, err)
		}
	}

	g, err := readGroups(br, rep, in.Count)
	if err != nil {
		return nil, classify(7, err)
	}

	values := make([]int64, in.Count)
	miss := make([]uint8, in.Count)
	anyMissing := false
	refMissing1 := reader.Mask(int(rep.Bits))
	k := 0
	for gi, n := range g.lengths {
		ref, width := g.refs[gi], g.widths[gi]
		if width == 0 {
			code := notMissing
			switch c.MissingManagement {
			case MissingPrimary:
				if rep.Bits > 0 && ref == refMissing1 {
					code = primaryMissing
				}
			case MissingSecondary:
				if rep.Bits > 0 && ref == refMissing1 {
					code = primaryMissing
				} else if rep.Bits > 0 && ref == refMissing1-1 {
					code = secondaryMissing
				}
			}
			for j := 0; j < n; j++ {
				values[k] = int64(ref)
				miss[k] = uint8(code)
				k++
			}
			anyMissing = anyMissing || code != notMissing
			continue
		}
		m1 := reader.Mask(width)
		for j := 0; j < n; j++ {
			x, err := br.ReadUint(width)
			if err != nil {
				return nil, classify(7, err)
			}
			switch {
			case c.MissingManagement >= MissingPrimary && x == m1:
				miss[k] = primaryMissing
				anyMissing = true
			case c.MissingManagement == MissingSecondary && x == m1-1:
				miss[k] = secondaryMissing
				anyMissing = true
			default:
				values[k] = int64(ref + x)
			}
			k++
		}
	}

	if rep.Kind == PackingComplexSpatial {
		if err := sd.undo(values, miss, c.SpatialOrder); err != nil {
			return nil, err
		}
	}

	scale := rep.scaleFunc()
	fld := make([]float64, in.Count)
	for i, x := range values {
		if anyMissing && miss[i] != notMissing {
			fld[i] = in.Missing
			continue
		}
		fld[i] = scale(x)
	}
	return fld, nil
}
