package grib2

import "slices"

// Template decoders, one table per section kind. The tables are never
// written after initialisation and are safe for concurrent use.

type gridDecoder func(h gridHeader, sec []byte) (Grid, error)

type productDecoder func(p *Product, t []byte) error

type dataDecoder func(d *DataRepresentation, t []byte) error

var gridTemplates = map[uint16]gridDecoder{
	0:  decodeLatLon,
	1:  decodeRotatedLatLon,
	10: decodeMercator,
	20: decodePolarStereographic,
	30: decodeLambert,
	40: decodeGaussian,
}

var productTemplates = map[uint16]productDecoder{
	0:  decodeProduct0,
	1:  decodeProduct1,
	8:  decodeProduct8,
	11: decodeProduct11,
}

var dataTemplates = map[uint16]dataDecoder{
	0:   decodeSimpleRep,
	2:   decodeComplexRep,
	3:   decodeSpatialRep,
	4:   decodeIEEERep,
	40:  decodeJPEG2000Rep,
	41:  decodePNGRep,
	200: decodeRunLengthRep,
	// pre-standard NCEP numbers
	40000: decodeJPEG2000Rep,
	40010: decodePNGRep,
}

var engines = map[PackingKind]Unpacker{
	PackingSimple:         unpackSimple,
	PackingComplex:        unpackComplex,
	PackingComplexSpatial: unpackComplex,
	PackingIEEE:           unpackIEEE,
	PackingJPEG2000:       unpackImage,
	PackingPNG:            unpackImage,
	PackingRunLength:      unpackRunLength,
}

func gridTemplate(n uint16) (gridDecoder, error) {
	if f, ok := gridTemplates[n]; ok {
		return f, nil
	}
	return nil, unsupported(3, int(n))
}

func productTemplate(n uint16) (productDecoder, error) {
	if f, ok := productTemplates[n]; ok {
		return f, nil
	}
	return nil, unsupported(4, int(n))
}

func dataTemplate(n uint16) (dataDecoder, error) {
	if f, ok := dataTemplates[n]; ok {
		return f, nil
	}
	return nil, unsupported(5, int(n))
}

func engine(d *DataRepresentation) (Unpacker, error) {
	if f, ok := engines[d.Kind]; ok {
		return f, nil
	}
	return nil, unsupported(5, int(d.Template))
}

// SupportedTemplates lists the template numbers the decoder understands,
// keyed by section number.
func SupportedTemplates() map[int][]uint16 {
	out := map[int][]uint16{}
	for n := range gridTemplates {
		out[3] = append(out[3], n)
	}
	for n := range productTemplates {
		out[4] = append(out[4], n)
	}
	for n := range dataTemplates {
		out[5] = append(out[5], n)
	}
	for _, list := range out {
		slices.Sort(list)
	}
	return out
}

// readSection3 decodes the grid definition section and checks that the
// grid describes as many points as the header declares.
func readSection3(sec []byte) (Grid, error) {
	h, err := readSection3Header(sec)
	if err != nil {
		return nil, err
	}
	if h.Source != 0 {
		return nil, unsupported(3, int(h.TemplateNumber))
	}
	decode, err := gridTemplate(h.TemplateNumber)
	if err != nil {
		return nil, err
	}
	g, err := decode(h, sec)
	if err != nil {
		return nil, err
	}
	if uint64(g.NumPoints()) != uint64(h.DataPointCount) {
		return nil, failure(3, "grid has %d points, header declares %d", g.NumPoints(), h.DataPointCount)
	}
	return g, nil
}
