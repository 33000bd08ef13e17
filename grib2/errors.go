package grib2

import (
	"errors"
	"fmt"

	"gribdecode.com/grib2/reader"
)

// ErrorKind classifies decode failures.
type ErrorKind int

const (
	// Malformed: marker or length mismatch for a candidate message.
	Malformed ErrorKind = iota + 1
	// UnsupportedTemplate: template (or indicator) number with no decoder.
	UnsupportedTemplate
	// OutOfRange: a read ran past the end of the available bytes.
	OutOfRange
	// DecodeFailure: numeric reconstruction or embedded codec failure.
	DecodeFailure
)

// Sentinels for errors.Is; every *Error matches the sentinel of its kind.
var (
	ErrMalformed           = errors.New("malformed message")
	ErrUnsupportedTemplate = errors.New("unsupported template")
	ErrOutOfRange          = errors.New("out of range")
	ErrDecodeFailure       = errors.New("decode failure")
)

func (k ErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case UnsupportedTemplate:
		return "unsupported template"
	case OutOfRange:
		return "out of range"
	case DecodeFailure:
		return "decode failure"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case Malformed:
		return ErrMalformed
	case UnsupportedTemplate:
		return ErrUnsupportedTemplate
	case OutOfRange:
		return ErrOutOfRange
	case DecodeFailure:
		return ErrDecodeFailure
	}
	return nil
}

// Error is the error type returned by the decoder.
type Error struct {
	Kind     ErrorKind
	Section  int   // section number, -1 when not tied to a section
	Template int   // template number for UnsupportedTemplate
	Offset   int64 // byte offset of the message in the stream
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Kind == UnsupportedTemplate {
		msg = fmt.Sprintf("%s %d.%d", msg, e.Section, e.Template)
	} else if e.Section >= 0 {
		msg = fmt.Sprintf("section %d: %s", e.Section, msg)
	}
	if e.Offset > 0 {
		msg = fmt.Sprintf("message @%d: %s", e.Offset, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func malformed(format string, args ...any) *Error {
	return &Error{Kind: Malformed, Section: -1, Err: fmt.Errorf(format, args...)}
}

func unsupported(section, template int) *Error {
	return &Error{Kind: UnsupportedTemplate, Section: section, Template: template}
}

func failure(section int, format string, args ...any) *Error {
	return &Error{Kind: DecodeFailure, Section: section, Err: fmt.Errorf(format, args...)}
}

func outOfRange(section int, format string, args ...any) *Error {
	return &Error{Kind: OutOfRange, Section: section, Err: fmt.Errorf(format, args...)}
}

// classify turns any error raised while decoding a section into an *Error,
// keeping an existing classification and mapping bit reader overruns to
// OutOfRange. Unknown errors become DecodeFailure.
func classify(section int, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Section < 0 {
			e.Section = section
		}
		return err
	}
	kind := DecodeFailure
	if errors.Is(err, reader.ErrOutOfRange) {
		kind = OutOfRange
	}
	return &Error{Kind: kind, Section: section, Err: err}
}

// withOffset stamps the stream offset onto a classified error.
func withOffset(err error, offset int64) error {
	var e *Error
	if errors.As(err, &e) && e.Offset == 0 {
		e.Offset = offset
	}
	return err
}

// TemplateOf returns the template number carried by an UnsupportedTemplate
// error anywhere in err's chain.
func TemplateOf(err error) (section, template int, ok bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == UnsupportedTemplate {
		return e.Section, e.Template, true
	}
	return 0, 0, false
}
