// Package grib2 decodes GRIB edition 2 messages into gridded values,
// coordinates and product metadata.
//
// The WMO manual on codes (WMO-No. 306, Vol. I.2) defines the layout:
// https://library.wmo.int/idurl/4/35625
package grib2

import (
	"encoding/binary"
	"time"

	"gribdecode.com/grib2/reader"
)

// Markers that delimit a message.
const (
	Grib                 = "GRIB"
	EndSection           = "7777"
	SupportedGribEdition = 2

	section0Length = 16
)

// | Octet Number | Content
// -----------------------------------------------------------------------------------------
// | 1-4          | 'GRIB' (Coded according to the International Alphabet Number 5)
// | 5-6          | reserved
// | 7            | Discipline (From Table 0.0)
// | 8            | Edition number - 2 for GRIB2
// | 9-16         | Total length of GRIB message in octets (All sections);
type Section0 struct {
	Discipline    uint8  `json:"discipline"`
	Edition       uint8  `json:"edition"`
	MessageLength uint64 `json:"messageLength"`
}

// readSec0 parses the indicator section at the start of b.
func readSec0(b []byte) (Section0, error) {
	if len(b) < section0Length {
		return Section0{}, outOfRange(0, "need %d bytes, got %d", section0Length, len(b))
	}
	if string(b[0:4]) != Grib {
		return Section0{}, malformed("missing %q marker, got %q", Grib, b[0:4])
	}
	return Section0{
		Discipline:    b[6],
		Edition:       b[7],
		MessageLength: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}

// section is a transient view of one section inside a message.
type section struct {
	number int
	offset int
	data   []byte // whole section, length prefix included
}

// splitSections walks the sections of a complete message. The message must
// start with Section 0 and end with the end marker, and the section lengths
// must add up to the declared total.
func splitSections(raw []byte) (Section0, []section, error) {
	sec0, err := readSec0(raw)
	if err != nil {
		return sec0, nil, err
	}
	if sec0.Edition != SupportedGribEdition {
		return sec0, nil, malformed("edition %d, want %d", sec0.Edition, SupportedGribEdition)
	}
	if sec0.MessageLength != uint64(len(raw)) {
		return sec0, nil, malformed("declared length %d, have %d bytes", sec0.MessageLength, len(raw))
	}
	end := len(raw) - len(EndSection)
	if end < section0Length || string(raw[end:]) != EndSection {
		return sec0, nil, malformed("missing %q end marker", EndSection)
	}

	var sections []section
	prev := 0
	off := section0Length
	for off < end {
		if end-off < 5 {
			return sec0, nil, malformed("%d stray bytes before end marker at %d", end-off, off)
		}
		length := uint64(binary.BigEndian.Uint32(raw[off:]))
		number := int(raw[off+4])
		if length < 5 || uint64(off)+length > uint64(end) {
			return sec0, nil, malformed("section %d at %d: length %d overruns message of %d bytes", number, off, length, len(raw))
		}
		if !validTransition(prev, number) {
			return sec0, nil, malformed("section %d at %d cannot follow section %d", number, off, prev)
		}
		sections = append(sections, section{number: number, offset: off, data: raw[off : off+int(length)]})
		prev = number
		off += int(length)
	}
	if prev != 7 {
		return sec0, nil, malformed("message ends after section %d, want 7", prev)
	}
	return sec0, sections, nil
}

// validTransition reports whether section next may follow section prev.
// Sections 2-7, 3-7 or 4-7 may repeat after a section 7.
func validTransition(prev, next int) bool {
	switch prev {
	case 0:
		return next == 1
	case 1:
		return next == 2 || next == 3
	case 7:
		return next == 2 || next == 3 || next == 4
	}
	return next == prev+1
}

// | Octet Number | Content
// -----------------------------------------------------------------------------------------
// | 1-4          | Length of the section in octets (21 or N)
// | 5            | Number of the section (1)
// | 6-7          | Identification of originating/generating center (See Table 0) (See note 4)
// | 8-9          | Identification of originating/generating subcenter (See Table C)
// | 10           | GRIB master tables version number (currently 2) (See Table 1.0) (See note 1)
// | 11           | Version number of GRIB local tables used to augment Master Tables (see Table 1.1)
// | 12           | Significance of reference time (See Table 1.2)
// | 13-14        | Year (4 digits)
// | 15           | Month
// | 16           | Day
// | 17           | Hour
// | 18           | Minute
// | 19           | Second
// | 20           | Production Status of Processed data in the GRIB message (See Table 1.3)
// | 21           | Type of processed data in this GRIB message (See Table 1.4)
// | 22-N         | Reserved
type Identification struct {
	OriginatingCenter         uint16    `json:"originatingCenter"`
	OriginatingSubCenter      uint16    `json:"originatingSubCenter"`
	MasterTablesVersion       uint8     `json:"masterTablesVersion"`
	LocalTablesVersion        uint8     `json:"localTablesVersion"`
	ReferenceTimeSignificance uint8     `json:"referenceTimeSignificance"`
	ReferenceTime             time.Time `json:"referenceTime"`
	ProductionStatus          uint8     `json:"productionStatus"`
	Type                      uint8     `json:"type"`
}

// readSection1 decodes the identification section.
func readSection1(sec []byte) (Identification, error) {
	if len(sec) < 21 {
		return Identification{}, outOfRange(1, "need 21 bytes, got %d", len(sec))
	}
	year := int(binary.BigEndian.Uint16(sec[12:14]))
	month, day := int(sec[14]), int(sec[15])
	hour, minute, second := int(sec[16]), int(sec[17]), int(sec[18])
	ref := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if month < 1 || month > 12 || hour > 23 || minute > 59 || second > 59 ||
		ref.Day() != day || int(ref.Month()) != month {
		return Identification{}, failure(1, "invalid reference time %04d-%02d-%02d %02d:%02d:%02d",
			year, month, day, hour, minute, second)
	}
	return Identification{
		OriginatingCenter:         binary.BigEndian.Uint16(sec[5:7]),
		OriginatingSubCenter:      binary.BigEndian.Uint16(sec[7:9]),
		MasterTablesVersion:       sec[9],
		LocalTablesVersion:        sec[10],
		ReferenceTimeSignificance: sec[11],
		ReferenceTime:             ref,
		ProductionStatus:          sec[19],
		Type:                      sec[20],
	}, nil
}

// | Octet Number | Content
// -----------------------------------------------------------------------------------------
// | 1-4          | Length of the section in octets (N)
// | 5            | Number of the section (2)
// | 6-N          | Local Use
func readSection2(sec []byte) []byte {
	local := make([]byte, len(sec)-5)
	copy(local, sec[5:])
	return local
}

// | Octet Number | Content
// -----------------------------------------------------------------------------------------
// | 1-4          | Length of the section in octets (nn)
// | 5            | Number of the section (3)
// | 6            | Source of grid definition (See Table 3.0) (See note 1 below)
// | 7-10         | Number of data points
// | 11           | Number of octets for optional list of numbers defining number of points (See note 2 below)
// | 12           | Interpetation of list of numbers defining number of points (See Table 3.11)
// | 13-14        | Grid definition template number (= N) (See Table 3.1)
// | 15-xx        | Grid definition template (See Template 3.N, where N is the grid definition template
// |              | number given in octets 13-14)
// | [xx+1]-nn    | Optional list of numbers defining number of points (See notes 2, 3, and 4 below)
type gridHeader struct {
	Source                   uint8
	DataPointCount           uint32
	PointCountOctets         uint8
	PointCountInterpretation uint8
	TemplateNumber           uint16
}

func readSection3Header(sec []byte) (gridHeader, error) {
	if len(sec) < 14 {
		return gridHeader{}, outOfRange(3, "need 14 bytes, got %d", len(sec))
	}
	return gridHeader{
		Source:                   sec[5],
		DataPointCount:           binary.BigEndian.Uint32(sec[6:10]),
		PointCountOctets:         sec[10],
		PointCountInterpretation: sec[11],
		TemplateNumber:           binary.BigEndian.Uint16(sec[12:14]),
	}, nil
}

// optionalList reads the per-row point counts that trail the grid template.
func (h gridHeader) optionalList(sec []byte, rows int) ([]int, error) {
	if h.PointCountOctets == 0 {
		return nil, nil
	}
	size := int(h.PointCountOctets)
	need := size * rows
	if rows <= 0 || need > len(sec)-14 {
		return nil, outOfRange(3, "list of %d×%d octets does not fit in %d bytes", rows, size, len(sec))
	}
	list := sec[len(sec)-need:]
	counts := make([]int, rows)
	for i := range counts {
		counts[i] = int(reader.Uint(list[i*size : (i+1)*size]))
	}
	return counts, nil
}

// | Octet Number | Content
// -----------------------------------------------------------------------------------------
// | 1-4          | Length of the section in octets (nn)
// | 5            | Number of the section (4)
// | 6-7          | Number of coordinate values after template (See note 1 below)
// | 8-9          | Product definition template number (See Table 4.0)
// | 10-xx        | Product definition template (See product template 4.X, where X is
// |              | the number given in octets 8-9)
// | [xx+1]-nn    | Optional list of coordinate values (See notes 2 and 3 below)
type productHeader struct {
	CoordinatesCount                uint16
	ProductDefinitionTemplateNumber uint16
}

func readSection4Header(sec []byte) (productHeader, error) {
	if len(sec) < 9 {
		return productHeader{}, outOfRange(4, "need 9 bytes, got %d", len(sec))
	}
	return productHeader{
		CoordinatesCount:                binary.BigEndian.Uint16(sec[5:7]),
		ProductDefinitionTemplateNumber: binary.BigEndian.Uint16(sec[7:9]),
	}, nil
}

// | Octet Number | Content
// -----------------------------------------------------------------------------------------
// | 1-4          | Length of the section in octets (nn)
// | 5            | Number of the section (5)
// | 6-9          | Number of data points where one or more values are specified in Section 7 when a bit map is present,
// |              | total number of data points when a bit map is absent.
// | 10-11        | Data representation template number (See Table 5.0)
// | 12-nn        | Data representation template (See Template 5.X, where X is the number given in octets 10-11)
type dataHeader struct {
	PointsNumber       uint32
	DataTemplateNumber uint16
}

func readSection5Header(sec []byte) (dataHeader, error) {
	if len(sec) < 11 {
		return dataHeader{}, outOfRange(5, "need 11 bytes, got %d", len(sec))
	}
	return dataHeader{
		PointsNumber:       binary.BigEndian.Uint32(sec[5:9]),
		DataTemplateNumber: binary.BigEndian.Uint16(sec[9:11]),
	}, nil
}

// Bit-map indicator values (Table 6.0).
const (
	bitmapFollows  = 0
	bitmapPrevious = 254
	bitmapNone     = 255
)

//	| Octet Number | Content
//	-----------------------------------------------------------------------------------------
//	| 1-4          | Length of the section in octets (nn)
//	| 5            | Number of the section (6)
//	| 6            | Bit-map indicator (See Table 6.0) (See note 1 below)
//	| 7-nn         | Bit-map
//
// If octet 6 is not zero, the length of this section is 6 and octets 7-nn are not present.
type Section6 struct {
	BitmapIndicator uint8
	Bitmap          []byte
}

func readSection6(sec []byte) (Section6, error) {
	if len(sec) < 6 {
		return Section6{}, outOfRange(6, "need 6 bytes, got %d", len(sec))
	}
	s := Section6{BitmapIndicator: sec[5]}
	switch s.BitmapIndicator {
	case bitmapFollows:
		s.Bitmap = sec[6:]
	case bitmapNone, bitmapPrevious:
	default:
		return s, unsupported(6, int(s.BitmapIndicator))
	}
	return s, nil
}

// | Octet Number | Content
// -----------------------------------------------------------------------------------------
// | 1-4          | Length of the section in octets (nn)
// | 5            | Number of the section (7)
// | 6-nn         | Data in a format described by data Template 7.X, where X is the data representation template number
// |              | given in octets 10-11 of Section 5.
func readSection7(sec []byte) []byte {
	return sec[5:]
}
