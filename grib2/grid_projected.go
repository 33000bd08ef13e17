package grib2

import (
	"encoding/binary"
	"math"
)

// Projected grids store their increments in millimetres and their angles in
// micro-degrees. All projections use the sphere given by Earth.SphereRadius.

// MercatorGrid is grid definition template 3.10. Its points lie on a
// latitude axis and a longitude axis, so it follows the longitude
// convention of LatLonGrid.
type MercatorGrid struct {
	gridBase
	La1         float64 `json:"la1"`
	Lo1         float64 `json:"lo1"`
	La2         float64 `json:"la2"`
	Lo2         float64 `json:"lo2"`
	LaD         float64 `json:"laD"` // latitude where Di and Dj are true
	Orientation float64 `json:"orientation"`
	Di          float64 `json:"di"` // metres
	Dj          float64 `json:"dj"` // metres
}

func (g *MercatorGrid) Kind() ProjectionKind { return ProjectionMercator }

func (g *MercatorGrid) scaleRadius() float64 {
	return g.Earth.SphereRadius() * math.Cos(toRad(g.LaD))
}

func (g *MercatorGrid) Axes() (lats, lons []float64) {
	rs := g.scaleRadius()
	si, sj := direction(g.ScanMode)
	lons = axis(g.Lo1, si*toDeg(g.Di/rs), g.Ni)
	y1 := rs * math.Log(math.Tan(math.Pi/4+toRad(g.La1)/2))
	lats = make([]float64, g.Nj)
	for j := range lats {
		y := y1 + sj*float64(j)*g.Dj
		lats[j] = toDeg(2*math.Atan(math.Exp(y/rs)) - math.Pi/2)
	}
	return lats, lons
}

func (g *MercatorGrid) Coordinates() ([]float64, []float64, error) {
	lats, lons := g.Axes()
	la, lo := pointsFromAxes(lats, lons, g.ScanMode)
	return la, lo, nil
}

const mercatorTemplateLen = 58

func decodeMercator(h gridHeader, sec []byte) (Grid, error) {
	t := sec[14:]
	if len(t) < mercatorTemplateLen {
		return nil, outOfRange(3, "template needs %d bytes, got %d", mercatorTemplateLen, len(t))
	}
	earth, err := readEarth(t)
	if err != nil {
		return nil, err
	}
	ni, nj := binary.BigEndian.Uint32(t[16:20]), binary.BigEndian.Uint32(t[20:24])
	if err := checkDims(ni, nj); err != nil {
		return nil, err
	}
	g := &MercatorGrid{
		gridBase:    gridBase{Template: h.TemplateNumber, Ni: int(ni), Nj: int(nj), ScanMode: ScanMode(t[45]), Earth: earth},
		La1:         angle(t[24:28], 1e-6),
		Lo1:         normLon(angle(t[28:32], 1e-6)),
		LaD:         angle(t[33:37], 1e-6),
		La2:         angle(t[37:41], 1e-6),
		Lo2:         normLon(angle(t[41:45], 1e-6)),
		Orientation: angle(t[46:50], 1e-6),
		Di:          float64(binary.BigEndian.Uint32(t[50:54])) / 1000,
		Dj:          float64(binary.BigEndian.Uint32(t[54:58])) / 1000,
	}
	if math.Abs(g.LaD) >= 90 || math.Abs(g.La1) >= 90 {
		return nil, failure(3, "mercator latitude out of range (LaD %.3f, La1 %.3f)", g.LaD, g.La1)
	}
	if g.Di <= 0 || g.Dj <= 0 {
		return nil, failure(3, "mercator increments must be positive (%.3f, %.3f)", g.Di, g.Dj)
	}
	return g, nil
}

// planar is the common part of the polar stereographic and Lambert
// templates: a first point and metric increments on a projection plane.
type planar struct {
	gridBase
	La1         float64 `json:"la1"`
	Lo1         float64 `json:"lo1"`
	LaD         float64 `json:"laD"`
	LoV         float64 `json:"loV"`
	Dx          float64 `json:"dx"` // metres
	Dy          float64 `json:"dy"` // metres
	SouthPole   bool    `json:"southPole"`
	Bipolar     bool    `json:"bipolar,omitempty"`
	radius      float64
	forwardFunc func(lat, lon float64) (x, y float64)
	inverseFunc func(x, y float64) (lat, lon float64)
}

// points projects the first point, steps over the plane and maps every point
// back to geographic coordinates in storage order.
func (p *planar) points() ([]float64, []float64, error) {
	x0, y0 := p.forwardFunc(p.La1, p.Lo1)
	if math.IsNaN(x0) || math.IsNaN(y0) || math.IsInf(x0, 0) || math.IsInf(y0, 0) {
		return nil, nil, failure(3, "first point (%.6f, %.6f) cannot be projected", p.La1, p.Lo1)
	}
	si, sj := direction(p.ScanMode)
	n := p.Ni * p.Nj
	lats := make([]float64, n)
	lons := make([]float64, n)
	forEachPoint(p.Ni, p.Nj, p.ScanMode, func(k, i, j int) {
		lat, lon := p.inverseFunc(x0+si*float64(i)*p.Dx, y0+sj*float64(j)*p.Dy)
		lats[k], lons[k] = lat, normLon(lon)
	})
	return lats, lons, nil
}

const polarTemplateLen = 51

func readPlanar(h gridHeader, sec []byte, need int) (planar, []byte, error) {
	t := sec[14:]
	if len(t) < need {
		return planar{}, nil, outOfRange(3, "template needs %d bytes, got %d", need, len(t))
	}
	earth, err := readEarth(t)
	if err != nil {
		return planar{}, nil, err
	}
	nx, ny := binary.BigEndian.Uint32(t[16:20]), binary.BigEndian.Uint32(t[20:24])
	if err := checkDims(nx, ny); err != nil {
		return planar{}, nil, err
	}
	p := planar{
		gridBase:  gridBase{Template: h.TemplateNumber, Ni: int(nx), Nj: int(ny), ScanMode: ScanMode(t[50]), Earth: earth},
		La1:       angle(t[24:28], 1e-6),
		Lo1:       normLon(angle(t[28:32], 1e-6)),
		LaD:       angle(t[33:37], 1e-6),
		LoV:       normLon(angle(t[37:41], 1e-6)),
		Dx:        float64(binary.BigEndian.Uint32(t[41:45])) / 1000,
		Dy:        float64(binary.BigEndian.Uint32(t[45:49])) / 1000,
		SouthPole: t[49]&0x80 != 0,
		Bipolar:   t[49]&0x40 != 0,
		radius:    earth.SphereRadius(),
	}
	if p.Dx <= 0 || p.Dy <= 0 {
		return planar{}, nil, failure(3, "grid increments must be positive (%.3f, %.3f)", p.Dx, p.Dy)
	}
	if math.Abs(p.La1) > 90 || math.Abs(p.LaD) > 90 {
		return planar{}, nil, failure(3, "latitude out of range (La1 %.3f, LaD %.3f)", p.La1, p.LaD)
	}
	return p, t, nil
}

// lonDelta returns lon-lon0 in (-180, 180] as radians.
func lonDelta(lon, lon0 float64) float64 {
	d := math.Mod(lon-lon0, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return toRad(d)
}

// PolarStereographicGrid is grid definition template 3.20.
type PolarStereographicGrid struct {
	planar
}

func (g *PolarStereographicGrid) Kind() ProjectionKind { return ProjectionPolarStereographic }

func (g *PolarStereographicGrid) Coordinates() ([]float64, []float64, error) {
	return g.points()
}

func decodePolarStereographic(h gridHeader, sec []byte) (Grid, error) {
	p, _, err := readPlanar(h, sec, polarTemplateLen)
	if err != nil {
		return nil, err
	}
	hs := 1.0
	if p.SouthPole {
		hs = -1
	}
	// scale is true at LaD
	k0 := (1 + hs*math.Sin(toRad(p.LaD))) / 2
	if k0 <= 0 {
		return nil, failure(3, "true latitude %.3f on the opposite pole", p.LaD)
	}
	r := 2 * p.radius * k0
	p.forwardFunc = func(lat, lon float64) (float64, float64) {
		rho := r * math.Tan(math.Pi/4-hs*toRad(lat)/2)
		dl := lonDelta(lon, p.LoV)
		return rho * math.Sin(dl), -hs * rho * math.Cos(dl)
	}
	p.inverseFunc = func(x, y float64) (float64, float64) {
		rho := math.Hypot(x, y)
		lat := hs * (90 - toDeg(2*math.Atan(rho/r)))
		if rho == 0 {
			return lat, p.LoV
		}
		return lat, p.LoV + toDeg(math.Atan2(x, -hs*y))
	}
	return &PolarStereographicGrid{planar: p}, nil
}

// LambertGrid is grid definition template 3.30, the Lambert conformal conic
// projection with one (Latin1 == Latin2) or two standard parallels.
type LambertGrid struct {
	planar
	Latin1       float64 `json:"latin1"`
	Latin2       float64 `json:"latin2"`
	SouthPoleLat float64 `json:"southPoleLat"`
	SouthPoleLon float64 `json:"southPoleLon"`

	cone float64
}

func (g *LambertGrid) Kind() ProjectionKind { return ProjectionLambertConformal }

// Cone returns the cone constant n of the projection.
func (g *LambertGrid) Cone() float64 { return g.cone }

func (g *LambertGrid) Coordinates() ([]float64, []float64, error) {
	return g.points()
}

const lambertTemplateLen = 67

func decodeLambert(h gridHeader, sec []byte) (Grid, error) {
	p, t, err := readPlanar(h, sec, lambertTemplateLen)
	if err != nil {
		return nil, err
	}
	g := &LambertGrid{
		Latin1:       angle(t[51:55], 1e-6),
		Latin2:       angle(t[55:59], 1e-6),
		SouthPoleLat: angle(t[59:63], 1e-6),
		SouthPoleLon: angle(t[63:67], 1e-6),
	}
	phi1, phi2 := toRad(g.Latin1), toRad(g.Latin2)
	if math.Abs(g.Latin1) >= 90 || math.Abs(g.Latin2) >= 90 {
		return nil, failure(3, "standard parallels out of range (%.3f, %.3f)", g.Latin1, g.Latin2)
	}
	tanHalf := func(phi float64) float64 { return math.Tan(math.Pi/4 + phi/2) }
	n := math.Sin(phi1)
	if math.Abs(g.Latin1-g.Latin2) > 1e-9 {
		n = math.Log(math.Cos(phi1)/math.Cos(phi2)) / math.Log(tanHalf(phi2)/tanHalf(phi1))
	}
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, failure(3, "degenerate cone for parallels %.3f and %.3f", g.Latin1, g.Latin2)
	}
	rf := p.radius * math.Cos(phi1) * math.Pow(tanHalf(phi1), n) / n
	rho := func(lat float64) float64 { return rf / math.Pow(tanHalf(toRad(lat)), n) }
	rho0 := rho(p.LaD)

	p.forwardFunc = func(lat, lon float64) (float64, float64) {
		r := rho(lat)
		theta := n * lonDelta(lon, p.LoV)
		return r * math.Sin(theta), rho0 - r*math.Cos(theta)
	}
	p.inverseFunc = func(x, y float64) (float64, float64) {
		dy := rho0 - y
		r := math.Copysign(math.Hypot(x, dy), n)
		var theta float64
		if n > 0 {
			theta = math.Atan2(x, dy)
		} else {
			theta = math.Atan2(-x, -dy)
		}
		if r == 0 {
			return math.Copysign(90, n), p.LoV
		}
		lat := toDeg(2*math.Atan(math.Pow(rf/r, 1/n)) - math.Pi/2)
		return lat, p.LoV + toDeg(theta/n)
	}
	g.planar = p
	g.cone = n
	return g, nil
}
