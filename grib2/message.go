package grib2

import (
	"encoding/json"
	"math"
	"slices"
	"time"

	"github.com/pkg/errors"

	"gribdecode.com/grib2/tables"
)

// Message is one decoded field: metadata, grid and values in storage order.
type Message struct {
	Offset         int64               `json:"offset"`
	Field          int                 `json:"field"` // index of the field inside the GRIB message
	Discipline     uint8               `json:"discipline"`
	Edition        uint8               `json:"edition"`
	Identification Identification      `json:"identification"`
	LocalUse       []byte              `json:"localUse,omitempty"`
	Grid           Grid                `json:"grid"`
	Product        *Product            `json:"product"`
	Representation *DataRepresentation `json:"representation"`
	Bitmap         []bool              `json:"-"`
	Values         []float64           `json:"values"`
	Missing        float64             `json:"missing"`
}

// Parameter describes the field (Code table 4.2). Unknown parameters get a
// placeholder abbreviation built from the three codes.
func (m *Message) Parameter() tables.Parameter {
	return tables.ParameterName(m.Discipline, m.Product.Category, m.Product.Number)
}

// Level names the first fixed surface and returns its value.
func (m *Message) Level() (tables.Level, float64) {
	s := m.Product.FirstSurface
	return tables.LevelType(s.Type), s.Value
}

func (m *Message) ReferenceTime() time.Time { return m.Identification.ReferenceTime }

func (m *Message) ValidTime() (time.Time, error) {
	return m.Product.ValidTime(m.Identification.ReferenceTime)
}

// Coordinates returns the latitude and longitude of every value.
func (m *Message) Coordinates() (lats, lons []float64, err error) {
	return m.Grid.Coordinates()
}

// At returns the value of point i and whether it is present.
func (m *Message) At(i int) (float64, bool) {
	if i < 0 || i >= len(m.Values) {
		return m.Missing, false
	}
	if m.Bitmap != nil && !m.Bitmap[i] {
		return m.Missing, false
	}
	v := m.Values[i]
	return v, !IsMissing(v, m.Missing)
}

// IsMissing compares v against a missing sentinel, NaN included.
func IsMissing(v, missing float64) bool {
	if math.IsNaN(missing) {
		return math.IsNaN(v)
	}
	return v == missing
}

// Float marshals NaN and infinities as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Floats converts a slice for JSON output.
func Floats(values []float64) []Float {
	out := make([]Float, len(values))
	for i, v := range values {
		out[i] = Float(v)
	}
	return out
}

func (m *Message) MarshalJSON() ([]byte, error) {
	type plain Message
	return json.Marshal(struct {
		*plain
		Values  []Float `json:"values"`
		Missing Float   `json:"missing"`
	}{
		plain:   (*plain)(m),
		Values:  Floats(m.Values),
		Missing: Float(m.Missing),
	})
}

type options struct {
	missing float64
	codecs  map[PackingKind]ImageCodec
	offset  int64
}

// Option configures decoding.
type Option func(*options)

// WithMissing sets the value stored for missing points. The default is NaN.
func WithMissing(v float64) Option {
	return func(o *options) { o.missing = v }
}

// WithImageCodec registers the codec for PackingJPEG2000 or PackingPNG.
func WithImageCodec(kind PackingKind, codec ImageCodec) Option {
	return func(o *options) {
		if o.codecs == nil {
			o.codecs = map[PackingKind]ImageCodec{}
		}
		o.codecs[kind] = codec
	}
}

// WithOffset records the stream offset of the message in results and errors.
func WithOffset(off int64) Option {
	return func(o *options) { o.offset = off }
}

func newOptions(opts []Option) *options {
	o := &options{missing: math.NaN()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DecodeMessage decodes a message holding a single field. Messages that
// repeat sections to carry several fields are rejected; use DecodeFields.
func DecodeMessage(raw []byte, opts ...Option) (*Message, error) {
	o := newOptions(opts)
	_, sections, err := splitSections(raw)
	if err != nil {
		return nil, withOffset(err, o.offset)
	}
	fields := 0
	for _, s := range sections {
		if s.number == 7 {
			fields++
		}
	}
	if fields != 1 {
		return nil, withOffset(malformed("message carries %d fields", fields), o.offset)
	}
	msgs, err := decodeSections(raw, sections, o)
	if err != nil {
		return nil, err
	}
	return msgs[0], nil
}

// DecodeFields decodes every field of a message. Sections 2-7, 3-7 or 4-7
// may repeat; each repetition yields a Message sharing the earlier sections.
func DecodeFields(raw []byte, opts ...Option) ([]*Message, error) {
	o := newOptions(opts)
	_, sections, err := splitSections(raw)
	if err != nil {
		return nil, withOffset(err, o.offset)
	}
	return decodeSections(raw, sections, o)
}

// fieldState is what the sections seen so far define.
type fieldState struct {
	id       Identification
	local    []byte
	grid     Grid
	product  *Product
	rep      *DataRepresentation
	bitmap   []bool
	previous []bool // last bitmap defined in this message

	// raw definitions, decoded again for each further field
	gridRaw, productRaw, repRaw []byte
	used                        bool
}

// detach replaces the definitions handed to the last field with fresh
// copies so that fields of one message share nothing.
func (st *fieldState) detach() error {
	var err error
	if st.grid, err = readSection3(st.gridRaw); err != nil {
		return err
	}
	if st.product, err = readSection4(st.productRaw); err != nil {
		return err
	}
	st.rep, err = readSection5(st.repRaw)
	return err
}

func decodeSections(raw []byte, sections []section, o *options) ([]*Message, error) {
	var (
		st   fieldState
		msgs []*Message
		err  error
	)
	fail := func(number int, err error) error {
		err = classify(number, err)
		return withOffset(errors.Wrapf(err, "field %d", len(msgs)), o.offset)
	}
	for _, s := range sections {
		switch s.number {
		case 1:
			if st.id, err = readSection1(s.data); err != nil {
				return nil, fail(1, err)
			}
		case 2:
			st.local = readSection2(s.data)
		case 3:
			if st.grid, err = readSection3(s.data); err != nil {
				return nil, fail(3, err)
			}
			st.gridRaw = s.data
		case 4:
			if st.product, err = readSection4(s.data); err != nil {
				return nil, fail(4, err)
			}
			st.productRaw = s.data
		case 5:
			if st.rep, err = readSection5(s.data); err != nil {
				return nil, fail(5, err)
			}
			st.repRaw = s.data
		case 6:
			if err = st.readBitmap(s.data); err != nil {
				return nil, fail(6, err)
			}
		case 7:
			if st.used {
				if err := st.detach(); err != nil {
					return nil, fail(7, err)
				}
			}
			m, err := st.unpack(readSection7(s.data), o)
			if err != nil {
				return nil, fail(7, err)
			}
			st.used = true
			m.Offset = o.offset
			m.Field = len(msgs)
			m.Discipline = raw[6]
			m.Edition = raw[7]
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

func (st *fieldState) readBitmap(sec []byte) error {
	s6, err := readSection6(sec)
	if err != nil {
		return err
	}
	switch s6.BitmapIndicator {
	case bitmapNone:
		st.bitmap = nil
	case bitmapPrevious:
		if st.previous == nil {
			return failure(6, "bitmap reuse without a previous bitmap")
		}
		st.bitmap = st.previous
	case bitmapFollows:
		if st.grid == nil {
			return failure(6, "bitmap before grid definition")
		}
		if st.bitmap, err = parseBitmap(s6.Bitmap, st.grid.NumPoints()); err != nil {
			return err
		}
		st.previous = st.bitmap
	}
	return nil
}

// unpack expands Section 7 with the sections seen so far and checks the
// point counts agree.
func (st *fieldState) unpack(data []byte, o *options) (*Message, error) {
	if st.grid == nil || st.product == nil || st.rep == nil {
		return nil, failure(7, "data section before grid, product or representation")
	}
	points := st.grid.NumPoints()
	count := st.rep.PackedPoints
	if st.bitmap != nil {
		if len(st.bitmap) != points {
			return nil, failure(6, "bitmap covers %d points, grid has %d", len(st.bitmap), points)
		}
		if set := countSet(st.bitmap); set != count {
			return nil, failure(6, "bitmap has %d points set, representation packs %d", set, count)
		}
	} else if count != points {
		return nil, failure(5, "representation packs %d points, grid has %d", count, points)
	}
	unpack, err := engine(st.rep)
	if err != nil {
		return nil, err
	}
	packed, err := unpack(UnpackInput{
		Data:    data,
		Rep:     st.rep,
		Count:   count,
		Missing: o.missing,
		Codec:   o.codecs[st.rep.Kind],
	})
	if err != nil {
		return nil, err
	}
	if len(packed) != count {
		return nil, failure(7, "engine returned %d values, want %d", len(packed), count)
	}
	values, err := ApplyBitmap(packed, st.bitmap, o.missing)
	if err != nil {
		return nil, err
	}
	return &Message{
		Identification: st.id,
		LocalUse:       slices.Clone(st.local),
		Grid:           st.grid,
		Product:        st.product,
		Representation: st.rep,
		Bitmap:         slices.Clone(st.bitmap),
		Values:         values,
		Missing:        o.missing,
	}, nil
}
