package grib2

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	jpeg2000 "github.com/ajroetker/go-jpeg2000"
)

// Samples are the integer samples of a decoded image, row by row.
type Samples struct {
	Width  int
	Height int
	Values []int64
}

// ImageCodec decodes the image payload of templates 7.40 and 7.41 into
// integer samples. JPEG2000Codec and PNGCodec are used unless a codec is
// registered with WithImageCodec.
type ImageCodec interface {
	Decode(payload []byte) (*Samples, error)
}

// ImageCodecFunc adapts a function to ImageCodec.
type ImageCodecFunc func(payload []byte) (*Samples, error)

func (f ImageCodecFunc) Decode(payload []byte) (*Samples, error) { return f(payload) }

// unpackImage expands JPEG2000 or PNG packed data. The samples are the
// packed integers of simple packing.
func unpackImage(in UnpackInput) ([]float64, error) {
	if in.Count == 0 {
		return []float64{}, nil
	}
	if in.Rep.Bits == 0 || len(in.Data) == 0 {
		return constantField(in), nil
	}
	codec := in.Codec
	if codec == nil {
		switch in.Rep.Kind {
		case PackingPNG:
			codec = PNGCodec{}
		case PackingJPEG2000:
			codec = JPEG2000Codec{}
		default:
			return nil, failure(7, "no codec for %s data", in.Rep.Kind)
		}
	}
	s, err := codec.Decode(in.Data)
	if err != nil {
		return nil, classify(7, fmt.Errorf("%s codec: %w", in.Rep.Kind, err))
	}
	if s == nil || len(s.Values) != in.Count {
		n := 0
		if s != nil {
			n = len(s.Values)
		}
		return nil, failure(7, "%s image has %d samples, want %d", in.Rep.Kind, n, in.Count)
	}
	scale := in.Rep.scaleFunc()
	fld := make([]float64, in.Count)
	for i, x := range s.Values {
		fld[i] = scale(x)
	}
	return fld, nil
}

// PNGCodec decodes PNG payloads with image/png. Grey images of 1 to 16 bits
// give one sample per pixel; 24-bit RGB and 32-bit RGBA pixels pack their
// channels into one integer, most significant channel first.
type PNGCodec struct{}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func (PNGCodec) Decode(payload []byte) (*Samples, error) {
	// IHDR immediately follows the signature; depth is octet 24
	if len(payload) < 26 || !bytes.Equal(payload[:8], pngSignature) {
		return nil, fmt.Errorf("not a png stream")
	}
	depth, colorType := payload[24], payload[25]
	img, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	s := &Samples{Width: w, Height: h, Values: make([]int64, 0, w*h)}
	switch m := img.(type) {
	case *image.Gray:
		// image/png widens 1, 2 and 4 bit grey to 8 bits
		div := int64(1)
		if depth < 8 {
			div = 0xFF / int64(1<<depth-1)
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				s.Values = append(s.Values, int64(m.GrayAt(x, y).Y)/div)
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				s.Values = append(s.Values, int64(m.Gray16At(x, y).Y))
			}
		}
	case *image.RGBA:
		if depth != 8 || colorType != 2 {
			return nil, fmt.Errorf("png colour type %d depth %d", colorType, depth)
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				p := m.Pix[m.PixOffset(x, y):]
				s.Values = append(s.Values, int64(p[0])<<16|int64(p[1])<<8|int64(p[2]))
			}
		}
	case *image.NRGBA:
		if depth != 8 || colorType != 6 {
			return nil, fmt.Errorf("png colour type %d depth %d", colorType, depth)
		}
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				p := m.Pix[m.PixOffset(x, y):]
				s.Values = append(s.Values, int64(p[0])<<24|int64(p[1])<<16|int64(p[2])<<8|int64(p[3]))
			}
		}
	default:
		return nil, fmt.Errorf("png colour model %T", img)
	}
	return s, nil
}

// JPEG2000Codec decodes JPEG2000 code streams. GRIB2 streams hold one grey
// component of up to 16 bits whose depth is read from the SIZ segment.
type JPEG2000Codec struct{}

var j2kHead = []byte{0xFF, 0x4F, 0xFF, 0x51} // SOC, SIZ

func (JPEG2000Codec) Decode(payload []byte) (*Samples, error) {
	// Ssiz of the first component is octet 42 of the code stream
	if len(payload) < 43 || !bytes.Equal(payload[:4], j2kHead) {
		return nil, fmt.Errorf("not a jpeg2000 code stream")
	}
	if payload[42]&0x80 != 0 {
		return nil, fmt.Errorf("signed jpeg2000 samples")
	}
	depth := int(payload[42]&0x7F) + 1
	if depth > 16 {
		return nil, fmt.Errorf("jpeg2000 depth %d", depth)
	}
	img, err := jpeg2000.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return greySamples(img, depth), nil
}

// greySamples reads grey pixels of the given bit depth. Samples widened to
// the 8 or 16 bits of the image model are shifted back.
func greySamples(img image.Image, depth int) *Samples {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	s := &Samples{Width: w, Height: h, Values: make([]int64, 0, w*h)}
	width := 16
	if _, ok := img.(*image.Gray); ok {
		width = 8
	}
	var top int64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v int64
			switch m := img.(type) {
			case *image.Gray:
				v = int64(m.GrayAt(x, y).Y)
			case *image.Gray16:
				v = int64(m.Gray16At(x, y).Y)
			default:
				v = int64(color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y)
			}
			top = max(top, v)
			s.Values = append(s.Values, v)
		}
	}
	if depth < width && top > 1<<depth-1 {
		for i := range s.Values {
			s.Values[i] >>= width - depth
		}
	}
	return s
}
