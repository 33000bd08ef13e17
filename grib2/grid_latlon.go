package grib2

import (
	"encoding/binary"
	"math"
	"sync"
)

// LatLonGrid is grid definition template 3.0 (equidistant cylindrical).
//
// Longitudes start at Lo1 normalised into [0, 360) and continue from it
// without wrapping, so the longitude axis is strictly monotonic even when
// the grid crosses the antimeridian or Greenwich.
type LatLonGrid struct {
	gridBase
	La1 float64 `json:"la1"`
	Lo1 float64 `json:"lo1"`
	La2 float64 `json:"la2"`
	Lo2 float64 `json:"lo2"`
	Di  float64 `json:"di"` // signed step along i
	Dj  float64 `json:"dj"` // signed step along j
}

func (g *LatLonGrid) Kind() ProjectionKind { return ProjectionLatLon }

// Axes returns the latitude and longitude axes of a regular grid. Reduced
// grids have no longitude axis.
func (g *LatLonGrid) Axes() (lats, lons []float64) {
	lats = axis(g.La1, g.Dj, g.Nj)
	if g.Rows == nil {
		lons = axis(g.Lo1, g.Di, g.Ni)
	}
	return lats, lons
}

func (g *LatLonGrid) Coordinates() ([]float64, []float64, error) {
	lats, lons := g.Axes()
	if g.Rows != nil {
		return reducedPoints(lats, g.Rows, g.Lo1, g.Lo2)
	}
	la, lo := pointsFromAxes(lats, lons, g.ScanMode)
	return la, lo, nil
}

// latLonFields are the octets shared by templates 3.0, 3.1 and 3.40.
type latLonFields struct {
	earth    Earth
	ni, nj   uint32
	unit     float64
	la1, lo1 float64
	la2, lo2 float64
	di, dj   uint32 // raw increments (dj holds N for template 3.40)
	scan     ScanMode
}

const latLonTemplateLen = 58

func readLatLonFields(sec []byte) (latLonFields, error) {
	t := sec[14:]
	if len(t) < latLonTemplateLen {
		return latLonFields{}, outOfRange(3, "template needs %d bytes, got %d", latLonTemplateLen, len(t))
	}
	earth, err := readEarth(t)
	if err != nil {
		return latLonFields{}, err
	}
	f := latLonFields{
		earth: earth,
		ni:    binary.BigEndian.Uint32(t[16:20]),
		nj:    binary.BigEndian.Uint32(t[20:24]),
		unit:  angleUnit(binary.BigEndian.Uint32(t[24:28]), binary.BigEndian.Uint32(t[28:32])),
		di:    binary.BigEndian.Uint32(t[49:53]),
		dj:    binary.BigEndian.Uint32(t[53:57]),
		scan:  ScanMode(t[57]),
	}
	f.la1 = angle(t[32:36], f.unit)
	f.lo1 = normLon(angle(t[36:40], f.unit))
	f.la2 = angle(t[41:45], f.unit)
	f.lo2 = normLon(angle(t[45:49], f.unit))
	return f, nil
}

// rows decodes the regular or quasi-regular row layout.
func (f latLonFields) rows(h gridHeader, sec []byte) (ni, nj int, rows []int, err error) {
	if f.ni == math.MaxUint32 {
		// quasi-regular: Ni missing, per-row counts in the optional list
		if f.nj == 0 || f.nj > maxGridDim {
			return 0, 0, nil, failure(3, "invalid row count %d", f.nj)
		}
		rows, err = h.optionalList(sec, int(f.nj))
		if err != nil {
			return 0, 0, nil, err
		}
		if rows == nil {
			return 0, 0, nil, failure(3, "quasi-regular grid without point list")
		}
		return 0, int(f.nj), rows, nil
	}
	if err := checkDims(f.ni, f.nj); err != nil {
		return 0, 0, nil, err
	}
	return int(f.ni), int(f.nj), nil, nil
}

// lonStep returns the signed longitude increment.
func (f latLonFields) lonStep(ni int) float64 {
	si, _ := direction(f.scan)
	if f.di != math.MaxUint32 {
		return si * float64(f.di) * f.unit
	}
	if ni <= 1 {
		return 0
	}
	span := f.lo2 - f.lo1
	if si > 0 && span < 0 {
		span += 360
	}
	if si < 0 && span > 0 {
		span -= 360
	}
	return span / float64(ni-1)
}

func decodeLatLon(h gridHeader, sec []byte) (Grid, error) {
	f, err := readLatLonFields(sec)
	if err != nil {
		return nil, err
	}
	ni, nj, rows, err := f.rows(h, sec)
	if err != nil {
		return nil, err
	}
	_, sj := direction(f.scan)
	dj := sj * float64(f.dj) * f.unit
	if f.dj == math.MaxUint32 {
		dj = 0
		if nj > 1 {
			dj = (f.la2 - f.la1) / float64(nj-1)
		}
	}
	return &LatLonGrid{
		gridBase: gridBase{Template: h.TemplateNumber, Ni: ni, Nj: nj, Rows: rows, ScanMode: f.scan, Earth: f.earth},
		La1:      f.la1,
		Lo1:      f.lo1,
		La2:      f.la2,
		Lo2:      f.lo2,
		Di:       f.lonStep(ni),
		Dj:       dj,
	}, nil
}

// reducedPoints spreads each row's points along the row. Global rows are
// divided evenly into 360/n degree steps; others span Lo1..Lo2.
func reducedPoints(latAxis []float64, rows []int, lo1, lo2 float64) ([]float64, []float64, error) {
	maxRow, total := 0, 0
	for _, n := range rows {
		if n > maxRow {
			maxRow = n
		}
		total += n
	}
	if total > maxTotalPoints {
		return nil, nil, failure(3, "reduced grid of %d points exceeds %d", total, maxTotalPoints)
	}
	span := lo2 - lo1
	if span < 0 {
		span += 360
	}
	global := maxRow > 0 && span+360/float64(maxRow) >= 360-1e-3
	lats := make([]float64, 0, total)
	lons := make([]float64, 0, total)
	for j, n := range rows {
		var step float64
		switch {
		case global && n > 0:
			step = 360 / float64(n)
		case n > 1:
			step = span / float64(n-1)
		}
		for i := 0; i < n; i++ {
			lats = append(lats, latAxis[j])
			lons = append(lons, lo1+float64(i)*step)
		}
	}
	return lats, lons, nil
}

// RotatedLatLonGrid is grid definition template 3.1. The regular axes are in
// the rotated system; Coordinates returns geographic positions.
type RotatedLatLonGrid struct {
	LatLonGrid
	SouthPoleLat  float64 `json:"southPoleLat"`
	SouthPoleLon  float64 `json:"southPoleLon"`
	RotationAngle float64 `json:"rotationAngle"`
}

func (g *RotatedLatLonGrid) Kind() ProjectionKind { return ProjectionRotatedLatLon }

func (g *RotatedLatLonGrid) Coordinates() ([]float64, []float64, error) {
	lats, lons, err := g.LatLonGrid.Coordinates()
	if err != nil {
		return nil, nil, err
	}
	for k := range lats {
		lats[k], lons[k] = g.Unrotate(lats[k], lons[k])
	}
	return lats, lons, nil
}

// Unrotate converts a rotated-grid position to geographic coordinates.
func (g *RotatedLatLonGrid) Unrotate(lat, lon float64) (float64, float64) {
	theta := toRad(-(90 + g.SouthPoleLat))
	sinT, cosT := math.Sincos(theta)
	phi := toRad(lat)
	lam := toRad(lon - g.RotationAngle)
	x := math.Cos(phi) * math.Cos(lam)
	y := math.Cos(phi) * math.Sin(lam)
	z := math.Sin(phi)
	x2 := cosT*x + sinT*z
	z2 := -sinT*x + cosT*z
	if z2 > 1 {
		z2 = 1
	} else if z2 < -1 {
		z2 = -1
	}
	return toDeg(math.Asin(z2)), normLon(toDeg(math.Atan2(y, x2)) + g.SouthPoleLon)
}

const rotatedTemplateLen = latLonTemplateLen + 12

func decodeRotatedLatLon(h gridHeader, sec []byte) (Grid, error) {
	if len(sec)-14 < rotatedTemplateLen {
		return nil, outOfRange(3, "template needs %d bytes, got %d", rotatedTemplateLen, len(sec)-14)
	}
	g, err := decodeLatLon(h, sec)
	if err != nil {
		return nil, err
	}
	t := sec[14:]
	unit := angleUnit(binary.BigEndian.Uint32(t[24:28]), binary.BigEndian.Uint32(t[28:32]))
	return &RotatedLatLonGrid{
		LatLonGrid:    *g.(*LatLonGrid),
		SouthPoleLat:  angle(t[58:62], unit),
		SouthPoleLon:  angle(t[62:66], unit),
		RotationAngle: float64(math.Float32frombits(binary.BigEndian.Uint32(t[66:70]))),
	}, nil
}

// GaussianGrid is grid definition template 3.40. Latitudes are the roots of
// the Legendre polynomial of degree 2N; the first row is the Gaussian
// latitude closest to La1.
type GaussianGrid struct {
	LatLonGrid
	N int `json:"n"` // parallels between a pole and the equator

	lats []float64
}

func (g *GaussianGrid) Kind() ProjectionKind { return ProjectionGaussian }

func (g *GaussianGrid) Axes() (lats, lons []float64) {
	_, lons = g.LatLonGrid.Axes()
	return append([]float64(nil), g.lats...), lons
}

func (g *GaussianGrid) Coordinates() ([]float64, []float64, error) {
	lats, lons := g.Axes()
	if g.Rows != nil {
		return reducedPoints(lats, g.Rows, g.Lo1, g.Lo2)
	}
	la, lo := pointsFromAxes(lats, lons, g.ScanMode)
	return la, lo, nil
}

func decodeGaussian(h gridHeader, sec []byte) (Grid, error) {
	f, err := readLatLonFields(sec)
	if err != nil {
		return nil, err
	}
	ni, nj, rows, err := f.rows(h, sec)
	if err != nil {
		return nil, err
	}
	n := int(f.dj)
	if n <= 0 || n > maxGaussianN || nj > 2*n {
		return nil, failure(3, "gaussian N=%d incompatible with %d rows", n, nj)
	}
	first := nearestGaussianRow(n, f.la1)
	// rows are counted north to south
	step := 1
	if f.scan.JPositive() {
		step = -1
	}
	last := first + step*(nj-1)
	if last < 0 || last >= 2*n {
		return nil, failure(3, "%d gaussian rows from latitude %.6f leave the globe", nj, f.la1)
	}
	lats := gaussianRows(n, first, nj, step)
	return &GaussianGrid{
		LatLonGrid: LatLonGrid{
			gridBase: gridBase{Template: h.TemplateNumber, Ni: ni, Nj: nj, Rows: rows, ScanMode: f.scan, Earth: f.earth},
			La1:      f.la1,
			Lo1:      f.lo1,
			La2:      f.la2,
			Lo2:      f.lo2,
			Di:       f.lonStep(ni),
		},
		N:    n,
		lats: lats,
	}, nil
}

// maxGaussianN bounds the Gaussian number. Operational grids stay far
// below it; each root costs O(N) and a grid needs up to 2N of them.
const maxGaussianN = 8192

// gaussianCacheSize bounds the number of row sets kept between messages.
const gaussianCacheSize = 32

type gaussianKey struct{ n, first, count, step int }

var gaussianCache = struct {
	sync.Mutex
	rows map[gaussianKey][]float64
}{rows: map[gaussianKey][]float64{}}

// gaussianRows returns count Gaussian latitudes of degree 2n starting at
// row first and moving by step. Row 0 is the northernmost. The result is
// shared and must not be modified.
func gaussianRows(n, first, count, step int) []float64 {
	key := gaussianKey{n, first, count, step}
	gaussianCache.Lock()
	lats, ok := gaussianCache.rows[key]
	gaussianCache.Unlock()
	if ok {
		return lats
	}
	lats = make([]float64, count)
	for j := range lats {
		lats[j] = gaussianLatitude(n, first+step*j)
	}
	gaussianCache.Lock()
	if len(gaussianCache.rows) >= gaussianCacheSize {
		for k := range gaussianCache.rows {
			delete(gaussianCache.rows, k)
			break
		}
	}
	gaussianCache.rows[key] = lats
	gaussianCache.Unlock()
	return lats
}

// gaussianLatitude returns row k of the 2n Gaussian latitudes in degrees,
// north to south. The root is found by Newton iteration on the Legendre
// polynomial from its asymptotic estimate.
func gaussianLatitude(n, k int) float64 {
	nlat := 2 * n
	south := k >= n
	if south {
		k = nlat - 1 - k
	}
	z := math.Cos(math.Pi * (float64(k) + 0.75) / (float64(nlat) + 0.5))
	for iter := 0; iter < 100; iter++ {
		p1, p2 := 1.0, 0.0
		for j := 1; j <= nlat; j++ {
			p3 := p2
			p2 = p1
			p1 = ((2*float64(j)-1)*z*p2 - (float64(j)-1)*p3) / float64(j)
		}
		pp := float64(nlat) * (z*p1 - p2) / (z*z - 1)
		z1 := z
		z = z1 - p1/pp
		if math.Abs(z-z1) < 1e-15 {
			break
		}
	}
	lat := toDeg(math.Asin(z))
	if south {
		return -lat
	}
	return lat
}

// nearestGaussianRow returns the row whose latitude is closest to lat. The
// asymptotic root estimate lands within a row of the answer, so only its
// neighbours are refined.
func nearestGaussianRow(n int, lat float64) int {
	nlat := 2 * n
	guess := int(math.Round((90-lat)*(float64(nlat)+0.5)/180 - 0.75))
	guess = max(0, min(nlat-1, guess))
	best, bestDiff := guess, math.Inf(1)
	for k := max(0, guess-2); k <= min(nlat-1, guess+2); k++ {
		if d := math.Abs(gaussianLatitude(n, k) - lat); d < bestDiff {
			best, bestDiff = k, d
		}
	}
	return best
}
