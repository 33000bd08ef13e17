package grib2

import (
	"encoding/binary"
	"math"

	"gribdecode.com/grib2/reader"
)

// ProjectionKind enumerates the supported grid families.
type ProjectionKind int

const (
	ProjectionUnsupported ProjectionKind = iota
	ProjectionLatLon
	ProjectionRotatedLatLon
	ProjectionGaussian
	ProjectionLambertConformal
	ProjectionPolarStereographic
	ProjectionMercator
)

func (k ProjectionKind) String() string {
	switch k {
	case ProjectionLatLon:
		return "latitude-longitude"
	case ProjectionRotatedLatLon:
		return "rotated latitude-longitude"
	case ProjectionGaussian:
		return "gaussian"
	case ProjectionLambertConformal:
		return "lambert conformal"
	case ProjectionPolarStereographic:
		return "polar stereographic"
	case ProjectionMercator:
		return "mercator"
	}
	return "unsupported"
}

// Grid is the decoded grid definition of a message. Concrete types are
// *LatLonGrid, *RotatedLatLonGrid, *GaussianGrid, *LambertGrid,
// *PolarStereographicGrid and *MercatorGrid.
type Grid interface {
	TemplateNumber() uint16
	Kind() ProjectionKind
	// Dims returns the points along a parallel (Ni) and a meridian (Nj).
	// Ni is 0 for quasi-regular grids.
	Dims() (ni, nj int)
	// RowPoints returns per-row point counts of a quasi-regular grid.
	RowPoints() []int
	NumPoints() int
	Scan() ScanMode
	// Coordinates returns one latitude/longitude pair per grid point, in
	// the order the values are stored.
	Coordinates() (lats, lons []float64, err error)
}

// RegularGrid is a grid whose points lie on the product of two 1-D axes.
type RegularGrid interface {
	Grid
	Axes() (lats, lons []float64)
}

// ScanMode holds the scanning mode flags (Flag table 3.4).
type ScanMode uint8

// INegative: points along a row scan in the -i direction.
func (m ScanMode) INegative() bool { return m&0x80 != 0 }

// JPositive: rows scan in the +j (northward) direction.
func (m ScanMode) JPositive() bool { return m&0x40 != 0 }

// ColumnMajor: adjacent points in j are consecutive.
func (m ScanMode) ColumnMajor() bool { return m&0x20 != 0 }

// Boustrophedon: every other row scans in the opposite direction.
func (m ScanMode) Boustrophedon() bool { return m&0x10 != 0 }

// Earth is the shape of the reference figure (Code table 3.2).
type Earth struct {
	Shape     uint8   `json:"shape"`
	Radius    float64 `json:"radius,omitempty"`
	SemiMajor float64 `json:"semiMajor,omitempty"`
	SemiMinor float64 `json:"semiMinor,omitempty"`
}

// SphereRadius is the radius used by the projection formulas. Oblate
// figures are replaced by the sphere of mean radius (2a+b)/3.
func (e Earth) SphereRadius() float64 {
	if e.Radius > 0 {
		return e.Radius
	}
	return (2*e.SemiMajor + e.SemiMinor) / 3
}

func scaled(sf byte, value []byte) float64 {
	return float64(binary.BigEndian.Uint32(value)) / math.Pow(10, float64(sf))
}

// readEarth decodes the 15 shape-of-earth octets that open most grid templates.
func readEarth(t []byte) (Earth, error) {
	e := Earth{Shape: t[0]}
	switch e.Shape {
	case 0:
		e.Radius = 6367470
	case 1:
		e.Radius = scaled(t[1], t[2:6])
	case 2:
		e.SemiMajor, e.SemiMinor = 6378160, 6356775
	case 3:
		e.SemiMajor, e.SemiMinor = scaled(t[6], t[7:11])*1000, scaled(t[11], t[12:16])*1000
	case 4, 10:
		e.SemiMajor, e.SemiMinor = 6378137, 6356752.314
	case 5:
		e.SemiMajor, e.SemiMinor = 6378137, 6356752.314245
	case 6:
		e.Radius = 6371229
	case 7:
		e.SemiMajor, e.SemiMinor = scaled(t[6], t[7:11]), scaled(t[11], t[12:16])
	case 8:
		e.Radius = 6371200
	case 9:
		e.SemiMajor, e.SemiMinor = 6377563.396, 6356256.909
	default:
		return e, failure(3, "unknown shape of the earth %d", e.Shape)
	}
	if e.SphereRadius() <= 0 || math.IsInf(e.SphereRadius(), 0) {
		return e, failure(3, "invalid earth radius for shape %d", e.Shape)
	}
	return e, nil
}

// gridBase carries what every template shares.
type gridBase struct {
	Template uint16   `json:"template"`
	Ni       int      `json:"ni"`
	Nj       int      `json:"nj"`
	Rows     []int    `json:"rowPoints,omitempty"`
	ScanMode ScanMode `json:"scanMode"`
	Earth    Earth    `json:"earth"`
}

func (g *gridBase) TemplateNumber() uint16 { return g.Template }
func (g *gridBase) Dims() (int, int)       { return g.Ni, g.Nj }
func (g *gridBase) RowPoints() []int       { return g.Rows }
func (g *gridBase) Scan() ScanMode         { return g.ScanMode }

func (g *gridBase) NumPoints() int {
	if g.Rows != nil {
		n := 0
		for _, r := range g.Rows {
			n += r
		}
		return n
	}
	return g.Ni * g.Nj
}

// maxGridDim bounds Ni and Nj so that a corrupt header cannot request
// gigantic coordinate arrays.
const maxGridDim = 1 << 20

func checkDims(ni, nj uint32) error {
	if ni == 0 || nj == 0 || ni > maxGridDim || nj > maxGridDim {
		return failure(3, "invalid grid dimensions %d×%d", ni, nj)
	}
	if uint64(ni)*uint64(nj) > maxTotalPoints {
		return failure(3, "grid %d×%d exceeds %d points", ni, nj, maxTotalPoints)
	}
	return nil
}

// angleUnit is the unit of the angle fields in degrees: micro-degrees unless a
// basic angle and subdivisions are given.
func angleUnit(basic, subdivisions uint32) float64 {
	if basic == 0 || basic == math.MaxUint32 {
		return 1e-6
	}
	if subdivisions == 0 || subdivisions == math.MaxUint32 {
		return float64(basic)
	}
	return float64(basic) / float64(subdivisions)
}

// angle decodes a signed (sign-magnitude) four-octet angle.
func angle(b []byte, unit float64) float64 {
	return float64(reader.SignMagnitude(b[:4])) * unit
}

// normLon brings a longitude into [0, 360).
func normLon(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon -= 360
	}
	return lon
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }

// axis returns n values start, start+step, ...
func axis(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// forEachPoint visits the (i, j) indexes of an ni×nj grid in storage order.
// i and j count along the axes as returned by Axes, so the scan direction
// flags are already folded into the axes and only the traversal order
// (row/column major, boustrophedon) matters here.
func forEachPoint(ni, nj int, mode ScanMode, fn func(k, i, j int)) {
	k := 0
	if mode.ColumnMajor() {
		for i := 0; i < ni; i++ {
			for jj := 0; jj < nj; jj++ {
				j := jj
				if mode.Boustrophedon() && i%2 == 1 {
					j = nj - 1 - jj
				}
				fn(k, i, j)
				k++
			}
		}
		return
	}
	for j := 0; j < nj; j++ {
		for ii := 0; ii < ni; ii++ {
			i := ii
			if mode.Boustrophedon() && j%2 == 1 {
				i = ni - 1 - ii
			}
			fn(k, i, j)
			k++
		}
	}
}

// pointsFromAxes expands two axes into per-point coordinates.
func pointsFromAxes(latAxis, lonAxis []float64, mode ScanMode) (lats, lons []float64) {
	n := len(latAxis) * len(lonAxis)
	lats = make([]float64, n)
	lons = make([]float64, n)
	forEachPoint(len(lonAxis), len(latAxis), mode, func(k, i, j int) {
		lats[k] = latAxis[j]
		lons[k] = lonAxis[i]
	})
	return lats, lons
}

// direction returns the signed step along i and j.
func direction(mode ScanMode) (si, sj float64) {
	si, sj = 1, -1
	if mode.INegative() {
		si = -1
	}
	if mode.JPositive() {
		sj = 1
	}
	return si, sj
}
