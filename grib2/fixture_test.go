package grib2

import (
	"encoding/binary"
	"math"
)

// Section builders for hand-made test messages.

func u16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func u32(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }
func f32(v float32) []byte { return u32(math.Float32bits(v)) }

// sm16 and sm32 encode sign-magnitude integers.
func sm16(v int) []byte {
	if v < 0 {
		return u16(0x8000 | uint16(-v))
	}
	return u16(uint16(v))
}

func sm32(v int) []byte {
	if v < 0 {
		return u32(0x80000000 | uint32(-v))
	}
	return u32(uint32(v))
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// sectionBytes prepends the length and number octets.
func sectionBytes(number byte, body ...[]byte) []byte {
	b := cat(body...)
	return cat(u32(uint32(5+len(b))), []byte{number}, b)
}

// message wraps sections in an indicator section and the end marker.
func message(discipline byte, sections ...[]byte) []byte {
	body := cat(sections...)
	total := uint64(16 + len(body) + 4)
	sec0 := make([]byte, 16)
	copy(sec0, Grib)
	sec0[6] = discipline
	sec0[7] = 2
	binary.BigEndian.PutUint64(sec0[8:], total)
	return cat(sec0, body, []byte(EndSection))
}

func section1(year, month, day, hour int) []byte {
	return sectionBytes(1,
		u16(7), u16(0), // NCEP
		[]byte{2, 1, 1},
		u16(uint16(year)), []byte{byte(month), byte(day), byte(hour), 0, 0},
		[]byte{0, 1},
	)
}

// earthSphere is shape 6 (radius 6371229 m) with empty scaled fields.
func earthSphere() []byte {
	return []byte{6, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
}

type latLonGrid struct {
	ni, nj             uint32
	la1, lo1, la2, lo2 int // micro-degrees
	di, dj             uint32
	scan               byte
}

func latLonTemplate(g latLonGrid) []byte {
	return cat(
		earthSphere(),
		u32(g.ni), u32(g.nj),
		u32(0), u32(0xFFFFFFFF),
		sm32(g.la1), sm32(g.lo1), []byte{0x30},
		sm32(g.la2), sm32(g.lo2),
		u32(g.di), u32(g.dj), []byte{g.scan},
	)
}

func section3(template uint16, points uint32, body []byte, list ...[]byte) []byte {
	octets := byte(0)
	if len(list) > 0 {
		octets = byte(len(list[0]))
	}
	return sectionBytes(3, []byte{0}, u32(points), []byte{octets, 0}, u16(template), body, cat(list...))
}

func latLonSection3(g latLonGrid) []byte {
	return section3(0, g.ni*g.nj, latLonTemplate(g))
}

// product0 is template 4.0 for a parameter at a surface with forecast hours.
func product0(category, number byte, hours uint32, surface byte, value int) []byte {
	return cat(
		[]byte{category, number, 2, 0, 96},
		u16(0), []byte{0},
		[]byte{UnitHour}, u32(hours),
		[]byte{surface, 0}, sm32(value),
		[]byte{255, 0}, u32(0),
	)
}

func section4(template uint16, body []byte) []byte {
	return sectionBytes(4, u16(0), u16(template), body)
}

// simple5 is the body of template 5.0.
func simple5(ref float32, e, d int, bits byte) []byte {
	return cat(f32(ref), sm16(e), sm16(d), []byte{bits, 0})
}

func section5(template uint16, points int, body []byte) []byte {
	return sectionBytes(5, u32(uint32(points)), u16(template), body)
}

func noBitmap() []byte { return sectionBytes(6, []byte{bitmapNone}) }

func bitmapSection(bits []bool) []byte {
	return sectionBytes(6, []byte{bitmapFollows}, packBools(bits))
}

func section7(data []byte) []byte { return sectionBytes(7, data) }

// packBits packs values MSB first with the given width.
func packBits(width int, values ...uint64) []byte {
	data := make([]byte, (len(values)*width+7)/8)
	pos := 0
	for _, v := range values {
		for b := width - 1; b >= 0; b-- {
			if (v>>uint(b))&1 == 1 {
				data[pos/8] |= 0x80 >> uint(pos%8)
			}
			pos++
		}
	}
	return data
}

func packBools(bits []bool) []byte {
	data := make([]byte, (len(bits)+7)/8)
	for i, set := range bits {
		if set {
			data[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return data
}

// bitWriter appends fields of arbitrary width for complex packed payloads.
type bitWriter struct {
	data []byte
	pos  int
}

func (w *bitWriter) put(width int, v uint64) {
	for b := width - 1; b >= 0; b-- {
		if w.pos/8 >= len(w.data) {
			w.data = append(w.data, 0)
		}
		if (v>>uint(b))&1 == 1 {
			w.data[w.pos/8] |= 0x80 >> uint(w.pos%8)
		}
		w.pos++
	}
}

func (w *bitWriter) align() {
	if w.pos%8 != 0 {
		w.pos += 8 - w.pos%8
	}
}

// scenario4x3 is a 4×3 one-degree grid from 0°N 0°E scanning north, simple
// packed with R=0, E=0, D=0 and the raw values 0..11.
func scenario4x3() []byte {
	grid := latLonGrid{ni: 4, nj: 3, la1: 0, lo1: 0, la2: 2000000, lo2: 3000000, di: 1000000, dj: 1000000, scan: 0x40}
	raw := make([]uint64, 12)
	for i := range raw {
		raw[i] = uint64(i)
	}
	return message(0,
		section1(2024, 3, 1, 6),
		latLonSection3(grid),
		section4(0, product0(0, 0, 6, 103, 2)),
		section5(0, 12, simple5(0, 0, 0, 8)),
		noBitmap(),
		section7(packBits(8, raw...)),
	)
}
