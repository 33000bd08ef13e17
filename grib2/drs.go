package grib2

import (
	"encoding/binary"
	"math"

	"gribdecode.com/grib2/reader"
)

// maxTotalPoints bounds the number of values a single field may expand to.
const maxTotalPoints = 1 << 28

// PackingKind selects the unpacking engine.
type PackingKind int

const (
	PackingSimple PackingKind = iota + 1
	PackingComplex
	PackingComplexSpatial
	PackingIEEE
	PackingJPEG2000
	PackingPNG
	PackingRunLength
)

func (k PackingKind) String() string {
	switch k {
	case PackingSimple:
		return "simple"
	case PackingComplex:
		return "complex"
	case PackingComplexSpatial:
		return "complex+spatial"
	case PackingIEEE:
		return "ieee"
	case PackingJPEG2000:
		return "jpeg2000"
	case PackingPNG:
		return "png"
	case PackingRunLength:
		return "run-length"
	}
	return "unknown"
}

// Missing value management (Code table 5.5).
const (
	MissingNone      = 0
	MissingPrimary   = 1
	MissingSecondary = 2
)

// ComplexParams are the group and differencing parameters of 5.2 and 5.3.
type ComplexParams struct {
	SplittingMethod    uint8   `json:"splittingMethod"`
	MissingManagement  uint8   `json:"missingManagement"`
	PrimaryMissing     float64 `json:"primaryMissing"`
	SecondaryMissing   float64 `json:"secondaryMissing"`
	Groups             uint32  `json:"groups"`
	WidthReference     uint8   `json:"widthReference"`
	WidthBits          uint8   `json:"widthBits"`
	LengthReference    uint32  `json:"lengthReference"`
	LengthIncrement    uint8   `json:"lengthIncrement"`
	LastGroupLength    uint32  `json:"lastGroupLength"`
	LengthBits         uint8   `json:"lengthBits"`
	SpatialOrder       uint8   `json:"spatialOrder,omitempty"`
	DescriptorOctets   uint8   `json:"descriptorOctets,omitempty"`
}

// ImageParams are the compression octets of 5.40.
type ImageParams struct {
	CompressionType uint8 `json:"compressionType"`
	TargetRatio     uint8 `json:"targetRatio"`
}

// RunLengthParams is template 5.200.
type RunLengthParams struct {
	MaxLevel      uint16    `json:"maxLevel"`      // MV
	LevelCount    uint16    `json:"levelCount"`    // MVL
	LevelDecimals int       `json:"levelDecimals"` // decimal scale of the levels
	Levels        []float64 `json:"levels"`
}

// DataRepresentation is the decoded Section 5.
type DataRepresentation struct {
	Template     uint16           `json:"template"`
	Kind         PackingKind      `json:"kind"`
	PackedPoints int              `json:"packedPoints"`
	Reference    float32          `json:"reference"`
	BinaryScale  int              `json:"binaryScale"`
	DecimalScale int              `json:"decimalScale"`
	Bits         uint8            `json:"bits"`
	ValueType    uint8            `json:"valueType"`
	Precision    uint8            `json:"precision,omitempty"`
	Complex      *ComplexParams   `json:"complex,omitempty"`
	Image        *ImageParams     `json:"image,omitempty"`
	RunLength    *RunLengthParams `json:"runLength,omitempty"`
}

// scaleFunc returns Y = (R + X·2^E)·10^-D with the factors precomputed.
func (d *DataRepresentation) scaleFunc() func(x int64) float64 {
	ref := float64(d.Reference)
	bscale := math.Pow(2, float64(d.BinaryScale))
	dscale := math.Pow(10, -float64(d.DecimalScale))
	return func(x int64) float64 {
		return (ref + float64(x)*bscale) * dscale
	}
}

const (
	simpleTemplateLen  = 10
	complexTemplateLen = 36
	spatialTemplateLen = 38
)

// readSimpleFields decodes R, E, D, bits and value type shared by the
// integer packings.
func readSimpleFields(d *DataRepresentation, t []byte) error {
	if len(t) < simpleTemplateLen {
		return outOfRange(5, "template needs %d bytes, got %d", simpleTemplateLen, len(t))
	}
	d.Reference = math.Float32frombits(binary.BigEndian.Uint32(t[0:4]))
	d.BinaryScale = int(reader.SignMagnitude(t[4:6]))
	d.DecimalScale = int(reader.SignMagnitude(t[6:8]))
	d.Bits = t[8]
	d.ValueType = t[9]
	if d.Bits > 32 {
		return failure(5, "%d bits per value, at most 32 supported", d.Bits)
	}
	if math.IsNaN(float64(d.Reference)) || math.IsInf(float64(d.Reference), 0) {
		return failure(5, "reference value is not finite")
	}
	return nil
}

func decodeSimpleRep(d *DataRepresentation, t []byte) error {
	d.Kind = PackingSimple
	return readSimpleFields(d, t)
}

// missingSubstitute reads a missing value substitute in the representation
// of the original values (float or integer).
func missingSubstitute(b []byte, valueType uint8) float64 {
	if valueType == 0 {
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	}
	return float64(binary.BigEndian.Uint32(b))
}

func decodeComplexRep(d *DataRepresentation, t []byte) error {
	if err := readSimpleFields(d, t); err != nil {
		return err
	}
	if len(t) < complexTemplateLen {
		return outOfRange(5, "template needs %d bytes, got %d", complexTemplateLen, len(t))
	}
	d.Kind = PackingComplex
	c := &ComplexParams{
		SplittingMethod:   t[10],
		MissingManagement: t[11],
		PrimaryMissing:    missingSubstitute(t[12:16], d.ValueType),
		SecondaryMissing:  missingSubstitute(t[16:20], d.ValueType),
		Groups:            binary.BigEndian.Uint32(t[20:24]),
		WidthReference:    t[24],
		WidthBits:         t[25],
		LengthReference:   binary.BigEndian.Uint32(t[26:30]),
		LengthIncrement:   t[30],
		LastGroupLength:   binary.BigEndian.Uint32(t[31:35]),
		LengthBits:        t[35],
	}
	switch {
	case c.MissingManagement > MissingSecondary:
		return failure(5, "missing value management %d", c.MissingManagement)
	case c.WidthBits > 32 || c.LengthBits > 32:
		return failure(5, "group descriptor widths %d/%d exceed 32 bits", c.WidthBits, c.LengthBits)
	case d.PackedPoints > 0 && uint64(c.Groups) > uint64(d.PackedPoints):
		return failure(5, "%d groups for %d points", c.Groups, d.PackedPoints)
	case d.PackedPoints > 0 && c.Groups == 0:
		return failure(5, "no groups for %d points", d.PackedPoints)
	}
	d.Complex = c
	return nil
}

func decodeSpatialRep(d *DataRepresentation, t []byte) error {
	if err := decodeComplexRep(d, t); err != nil {
		return err
	}
	if len(t) < spatialTemplateLen {
		return outOfRange(5, "template needs %d bytes, got %d", spatialTemplateLen, len(t))
	}
	d.Kind = PackingComplexSpatial
	d.Complex.SpatialOrder = t[36]
	d.Complex.DescriptorOctets = t[37]
	if d.Complex.SpatialOrder != 1 && d.Complex.SpatialOrder != 2 {
		return failure(5, "spatial differencing order %d", d.Complex.SpatialOrder)
	}
	if d.Complex.DescriptorOctets < 1 || d.Complex.DescriptorOctets > 4 {
		return failure(5, "%d extra descriptor octets", d.Complex.DescriptorOctets)
	}
	return nil
}

func decodeIEEERep(d *DataRepresentation, t []byte) error {
	if len(t) < 1 {
		return outOfRange(5, "template needs 1 byte")
	}
	d.Kind = PackingIEEE
	d.Precision = t[0]
	switch d.Precision {
	case 1:
		d.Bits = 32
	case 2:
		d.Bits = 64
	default:
		return failure(5, "ieee precision %d", d.Precision)
	}
	return nil
}

func decodeJPEG2000Rep(d *DataRepresentation, t []byte) error {
	if err := readSimpleFields(d, t); err != nil {
		return err
	}
	d.Kind = PackingJPEG2000
	if len(t) >= simpleTemplateLen+2 {
		d.Image = &ImageParams{CompressionType: t[10], TargetRatio: t[11]}
	}
	return nil
}

func decodePNGRep(d *DataRepresentation, t []byte) error {
	if err := readSimpleFields(d, t); err != nil {
		return err
	}
	d.Kind = PackingPNG
	return nil
}

func decodeRunLengthRep(d *DataRepresentation, t []byte) error {
	if len(t) < 6 {
		return outOfRange(5, "template needs 6 bytes, got %d", len(t))
	}
	d.Kind = PackingRunLength
	d.Bits = t[0]
	r := &RunLengthParams{
		MaxLevel:      binary.BigEndian.Uint16(t[1:3]),
		LevelCount:    binary.BigEndian.Uint16(t[3:5]),
		LevelDecimals: int(reader.SignMagnitude(t[5:6])),
	}
	if d.Bits == 0 || d.Bits > 16 {
		return failure(5, "run-length with %d bits per value", d.Bits)
	}
	if uint64(r.MaxLevel) >= 1<<d.Bits-1 {
		return failure(5, "maximum level %d leaves no run digits in %d bits", r.MaxLevel, d.Bits)
	}
	levels := t[6:]
	if len(levels) < int(r.LevelCount)*2 {
		return outOfRange(5, "%d levels need %d bytes, got %d", r.LevelCount, int(r.LevelCount)*2, len(levels))
	}
	scale := math.Pow(10, -float64(r.LevelDecimals))
	r.Levels = make([]float64, r.LevelCount)
	for i := range r.Levels {
		r.Levels[i] = float64(reader.SignMagnitude(levels[i*2:i*2+2])) * scale
	}
	d.RunLength = r
	return nil
}

// readSection5 decodes the data representation section.
func readSection5(sec []byte) (*DataRepresentation, error) {
	h, err := readSection5Header(sec)
	if err != nil {
		return nil, err
	}
	decode, err := dataTemplate(h.DataTemplateNumber)
	if err != nil {
		return nil, err
	}
	if h.PointsNumber > maxTotalPoints {
		return nil, failure(5, "%d packed points exceed %d", h.PointsNumber, maxTotalPoints)
	}
	d := &DataRepresentation{Template: h.DataTemplateNumber, PackedPoints: int(h.PointsNumber)}
	if err := decode(d, sec[11:]); err != nil {
		return nil, err
	}
	return d, nil
}
