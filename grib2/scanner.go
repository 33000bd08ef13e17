package grib2

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Span is the byte range of one candidate message in a stream.
type Span struct {
	Offset     int64
	Discipline uint8
	Edition    uint8
	Data       []byte // aliases the scanned buffer
}

// Scanner finds GRIB2 messages in a buffer holding concatenated messages.
// It is lazy and restartable; it never copies message bytes.
type Scanner struct {
	buf []byte
	pos int
}

// NewScanner returns a scanner positioned at the start of buf.
func NewScanner(buf []byte) *Scanner {
	return &Scanner{buf: buf}
}

// Reset restarts the scan from the beginning of the buffer.
func (s *Scanner) Reset() { s.pos = 0 }

// Next returns the next candidate message. A candidate that fails the
// marker or length checks is returned with a non-nil *Error and Span.Offset
// set; the scan continues after its start marker on the following call.
// Next returns io.EOF when no further marker exists.
func (s *Scanner) Next() (Span, error) {
	i := bytes.Index(s.buf[s.pos:], []byte(Grib))
	if i < 0 {
		s.pos = len(s.buf)
		return Span{}, io.EOF
	}
	start := s.pos + i
	span := Span{Offset: int64(start)}
	rest := s.buf[start:]

	// resume after this marker unless the candidate turns out valid
	s.pos = start + len(Grib)

	if len(rest) < section0Length {
		return span, withOffset(outOfRange(0, "truncated indicator section (%d bytes)", len(rest)), span.Offset)
	}
	span.Discipline = rest[6]
	span.Edition = rest[7]

	var length uint64
	switch span.Edition {
	case SupportedGribEdition:
		length = binary.BigEndian.Uint64(rest[8:16])
	case 1:
		// Edition 1 keeps a 3-octet length in octets 5-7.
		length = uint64(rest[4])<<16 | uint64(rest[5])<<8 | uint64(rest[6])
	default:
		return span, withOffset(malformed("edition %d", span.Edition), span.Offset)
	}
	if length < section0Length+uint64(len(EndSection)) {
		return span, withOffset(malformed("declared length %d too small", length), span.Offset)
	}
	if length > uint64(len(rest)) {
		return span, withOffset(outOfRange(-1, "declared length %d exceeds %d remaining bytes", length, len(rest)), span.Offset)
	}
	msg := rest[:length]
	if string(msg[len(msg)-len(EndSection):]) != EndSection {
		return span, withOffset(malformed("no %q at declared end %d", EndSection, start+int(length)), span.Offset)
	}
	s.pos = start + int(length)
	if span.Edition != SupportedGribEdition {
		return span, withOffset(malformed("edition %d message skipped", span.Edition), span.Offset)
	}
	span.Data = msg
	return span, nil
}

// Spans returns every candidate in the buffer, eagerly. Failed candidates are
// included with their error so the caller sees them in stream order.
func Spans(buf []byte) ([]Span, []error) {
	s := NewScanner(buf)
	var spans []Span
	var errs []error
	for {
		span, err := s.Next()
		if err == io.EOF {
			return spans, errs
		}
		spans = append(spans, span)
		errs = append(errs, err)
	}
}
