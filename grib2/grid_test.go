package grib2

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeGrid(t *testing.T, template uint16, points uint32, body []byte, list ...[]byte) Grid {
	t.Helper()
	g, err := readSection3(section3(template, points, body, list...))
	require.NoError(t, err)
	return g
}

func TestLatLonAxes(t *testing.T) {
	tests := []struct {
		name     string
		area     latLonGrid
		wantLats []float64
		wantLons []float64
	}{
		{
			name:     "north to south",
			area:     latLonGrid{ni: 3, nj: 2, la1: 10000000, lo1: 20000000, la2: 9000000, lo2: 22000000, di: 1000000, dj: 1000000},
			wantLats: []float64{10, 9},
			wantLons: []float64{20, 21, 22},
		},
		{
			name:     "antimeridian",
			area:     latLonGrid{ni: 3, nj: 1, lo1: 179000000, lo2: -179000000, di: 1000000, dj: 1000000},
			wantLats: []float64{0},
			wantLons: []float64{179, 180, 181},
		},
		{
			name:     "greenwich",
			area:     latLonGrid{ni: 3, nj: 1, lo1: -1000000, lo2: 1000000, di: 1000000, dj: 1000000},
			wantLats: []float64{0},
			wantLons: []float64{359, 360, 361},
		},
		{
			name:     "i negative",
			area:     latLonGrid{ni: 3, nj: 1, lo1: 10000000, lo2: 8000000, di: 1000000, dj: 1000000, scan: 0x80},
			wantLats: []float64{0},
			wantLons: []float64{10, 9, 8},
		},
		{
			name:     "increments missing",
			area:     latLonGrid{ni: 4, nj: 3, la1: -1000000, la2: 1000000, lo2: 3000000, di: 0xFFFFFFFF, dj: 0xFFFFFFFF, scan: 0x40},
			wantLats: []float64{-1, 0, 1},
			wantLons: []float64{0, 1, 2, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := decodeGrid(t, 0, tt.area.ni*tt.area.nj, latLonTemplate(tt.area))
			require.Equal(t, ProjectionLatLon, g.Kind())
			lats, lons := g.(RegularGrid).Axes()
			assert.InDeltaSlice(t, tt.wantLats, lats, 1e-9)
			assert.InDeltaSlice(t, tt.wantLons, lons, 1e-9)
		})
	}
}

func TestForEachPointOrder(t *testing.T) {
	type ij struct{ i, j int }
	tests := []struct {
		name string
		mode ScanMode
		want []ij
	}{
		{"row major", 0, []ij{{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}}},
		{"boustrophedon", 0x10, []ij{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {1, 1}, {0, 1}}},
		{"column major", 0x20, []ij{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {2, 0}, {2, 1}}},
		{"column boustrophedon", 0x30, []ij{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {2, 0}, {2, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []ij
			forEachPoint(3, 2, tt.mode, func(k, i, j int) {
				assert.Equal(t, len(got), k)
				got = append(got, ij{i, j})
			})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLatLonCoordinatesFollowStorageOrder(t *testing.T) {
	g, err := readSection3(latLonSection3(latLonGrid{
		ni: 4, nj: 3, la2: 2000000, lo2: 3000000, di: 1000000, dj: 1000000, scan: 0x40,
	}))
	require.NoError(t, err)
	lats, lons, err := g.Coordinates()
	require.NoError(t, err)
	require.Len(t, lats, 12)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2}, lats, 1e-9)
	assert.InDeltaSlice(t, []float64{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3}, lons, 1e-9)
}

func TestReducedGrid(t *testing.T) {
	area := latLonGrid{ni: 0xFFFFFFFF, nj: 3, la1: 45000000, la2: -45000000, lo2: 315000000, di: 0xFFFFFFFF, dj: 45000000}
	g := decodeGrid(t, 0, 16, latLonTemplate(area), u16(4), u16(8), u16(4))

	ni, nj := g.Dims()
	assert.Equal(t, 0, ni)
	assert.Equal(t, 3, nj)
	assert.Equal(t, []int{4, 8, 4}, g.RowPoints())
	assert.Equal(t, 16, g.NumPoints())

	lats, lons, err := g.Coordinates()
	require.NoError(t, err)
	require.Len(t, lats, 16)
	assert.InDeltaSlice(t, []float64{0, 90, 180, 270}, lons[:4], 1e-9)
	assert.InDeltaSlice(t, []float64{0, 45, 90, 135, 180, 225, 270, 315}, lons[4:12], 1e-9)
	assert.InDelta(t, 45, lats[0], 1e-9)
	assert.InDelta(t, 0, lats[4], 1e-9)
	assert.InDelta(t, -45, lats[15], 1e-9)
}

func TestReducedGridNeedsList(t *testing.T) {
	area := latLonGrid{ni: 0xFFFFFFFF, nj: 3, lo2: 315000000, di: 0xFFFFFFFF, dj: 45000000}
	_, err := readSection3(section3(0, 16, latLonTemplate(area)))
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestGridPointCountMismatch(t *testing.T) {
	area := latLonGrid{ni: 4, nj: 3, di: 1000000, dj: 1000000}
	_, err := readSection3(section3(0, 13, latLonTemplate(area)))
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestGridDimensions(t *testing.T) {
	for _, area := range []latLonGrid{
		{ni: 0, nj: 3, di: 1, dj: 1},
		{ni: maxGridDim + 1, nj: 1, di: 1, dj: 1},
	} {
		_, err := readSection3(section3(0, area.ni*area.nj, latLonTemplate(area)))
		assert.ErrorIs(t, err, ErrDecodeFailure)
	}
}

func TestUnrotate(t *testing.T) {
	identity := &RotatedLatLonGrid{SouthPoleLat: -90}
	lat, lon := identity.Unrotate(10, 20)
	assert.InDelta(t, 10, lat, 1e-9)
	assert.InDelta(t, 20, lon, 1e-9)

	// rotated north pole at 40°N 170°W
	g := &RotatedLatLonGrid{SouthPoleLat: -40, SouthPoleLon: 10}
	lat, lon = g.Unrotate(0, 0)
	assert.InDelta(t, 50, lat, 1e-9)
	assert.InDelta(t, 10, lon, 1e-9)
	lat, lon = g.Unrotate(90, 0)
	assert.InDelta(t, 40, lat, 1e-9)
	assert.InDelta(t, 190, lon, 1e-9)
}

func TestRotatedGridTemplate(t *testing.T) {
	area := latLonGrid{ni: 2, nj: 1, lo2: 1000000, di: 1000000, dj: 1000000}
	body := cat(latLonTemplate(area), sm32(-40000000), sm32(10000000), f32(0))
	g := decodeGrid(t, 1, 2, body)
	require.Equal(t, ProjectionRotatedLatLon, g.Kind())
	rg := g.(*RotatedLatLonGrid)
	assert.InDelta(t, -40, rg.SouthPoleLat, 1e-9)
	assert.InDelta(t, 10, rg.SouthPoleLon, 1e-9)

	lats, lons, err := g.Coordinates()
	require.NoError(t, err)
	assert.InDelta(t, 50, lats[0], 1e-9)
	assert.InDelta(t, 10, lons[0], 1e-9)

	_, err = readSection3(section3(1, 2, latLonTemplate(area)))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestGaussianLatitudes(t *testing.T) {
	one := gaussianRows(1, 0, 2, 1)
	require.Len(t, one, 2)
	assert.InDelta(t, 35.264389682754654, one[0], 1e-9)
	assert.InDelta(t, -one[0], one[1], 1e-12)

	two := gaussianRows(2, 0, 4, 1)
	assert.InDelta(t, toDeg(math.Asin(0.8611363115940526)), two[0], 1e-9)
	assert.InDelta(t, toDeg(math.Asin(0.3399810435848563)), two[1], 1e-9)

	lats := gaussianRows(48, 0, 96, 1)
	require.Len(t, lats, 96)
	for i := 1; i < len(lats); i++ {
		assert.Less(t, lats[i], lats[i-1])
	}
	for i := range lats {
		assert.InDelta(t, -lats[i], lats[len(lats)-1-i], 1e-12)
	}
	assert.Less(t, lats[0], 90.0)
}

func TestGaussianGrid(t *testing.T) {
	all := gaussianRows(2, 0, 4, 1)
	micro := func(v float64) int { return int(math.Round(v * 1e6)) }
	tests := []struct {
		name string
		nj   uint32
		la1  float64
		scan byte
		want []float64
	}{
		{"global", 4, all[0], 0, all},
		{"sub-area", 2, all[1], 0, all[1:3]},
		{"south to north", 4, all[3], 0x40, []float64{all[3], all[2], all[1], all[0]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area := latLonGrid{ni: 8, nj: tt.nj, la1: micro(tt.la1), lo2: 315000000, di: 45000000, dj: 2, scan: tt.scan}
			g := decodeGrid(t, 40, 8*tt.nj, latLonTemplate(area))
			require.Equal(t, ProjectionGaussian, g.Kind())
			gg := g.(*GaussianGrid)
			assert.Equal(t, 2, gg.N)
			lats, lons := gg.Axes()
			assert.InDeltaSlice(t, tt.want, lats, 1e-12)
			assert.Len(t, lons, 8)
		})
	}

	area := latLonGrid{ni: 8, nj: 3, la1: micro(all[2]), lo2: 315000000, di: 45000000, dj: 2}
	_, err := readSection3(section3(40, 24, latLonTemplate(area)))
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestNearestGaussianRow(t *testing.T) {
	lats := gaussianRows(48, 0, 96, 1)
	for _, lat := range []float64{90, 88.6, 45, 1e-3, 0, -0.5, -33.3, -89.9, -90} {
		want := 0
		for k := range lats {
			if math.Abs(lats[k]-lat) < math.Abs(lats[want]-lat) {
				want = k
			}
		}
		assert.Equal(t, want, nearestGaussianRow(48, lat), "lat %v", lat)
	}
}

func TestGaussianGridLargeN(t *testing.T) {
	start := time.Now()
	area := latLonGrid{ni: 1, nj: 1, la1: 45000000, di: 1000000, dj: maxGaussianN}
	g := decodeGrid(t, 40, 1, latLonTemplate(area))
	lats, _ := g.(*GaussianGrid).Axes()
	require.Len(t, lats, 1)
	assert.InDelta(t, 45.0, lats[0], 180.0/(2*maxGaussianN))
	assert.Less(t, time.Since(start), 5*time.Second)

	for _, n := range []uint32{maxGaussianN + 1, 524288, 0xFFFFFFFE} {
		area.dj = n
		_, err := readSection3(section3(40, 1, latLonTemplate(area)))
		assert.ErrorIs(t, err, ErrDecodeFailure, "N=%d", n)
	}
}

// projected builds the shared head of templates 3.10, 3.20 and 3.30.
func projected(nx, ny uint32, la1, lo1 int) []byte {
	return cat(earthSphere(), u32(nx), u32(ny), sm32(la1), sm32(lo1), []byte{0x08})
}

func polarTemplate(nx, ny uint32, la1, lo1, laD, loV int, dx, dy uint32, centre, scan byte) []byte {
	return cat(projected(nx, ny, la1, lo1), sm32(laD), sm32(loV), u32(dx), u32(dy), []byte{centre, scan})
}

func lambertTemplate(la1, lo1, laD, loV, latin1, latin2 int, scan byte) []byte {
	return cat(
		polarTemplate(4, 3, la1, lo1, laD, loV, 12000000, 12000000, 0, scan),
		sm32(latin1), sm32(latin2), sm32(-90000000), sm32(0),
	)
}

func TestMercatorGrid(t *testing.T) {
	r := 6371229.0
	di := uint32(math.Round(2 * math.Pi * r / 360 * 1000)) // one degree at the equator, mm
	body := cat(
		projected(3, 3, -10000000, 350000000),
		sm32(0), sm32(10000000), sm32(2000000),
		[]byte{0x40}, u32(0), u32(di), u32(100000000),
	)
	g := decodeGrid(t, 10, 9, body)
	require.Equal(t, ProjectionMercator, g.Kind())
	mg := g.(*MercatorGrid)

	lats, lons := mg.Axes()
	assert.InDeltaSlice(t, []float64{350, 351, 352}, lons, 1e-6)
	assert.InDelta(t, -10, lats[0], 1e-9)
	y := func(lat float64) float64 { return r * math.Log(math.Tan(math.Pi/4+toRad(lat)/2)) }
	for j := 1; j < len(lats); j++ {
		assert.Greater(t, lats[j], lats[j-1])
		assert.InDelta(t, 100000, y(lats[j])-y(lats[j-1]), 1e-3)
	}

	pLats, pLons, err := g.Coordinates()
	require.NoError(t, err)
	assert.Len(t, pLats, 9)
	assert.Equal(t, lats[0], pLats[0])
	assert.Equal(t, lons[2], pLons[2])
}

func TestPolarStereographicGrid(t *testing.T) {
	tests := []struct {
		name      string
		la1, lo1  int
		laD, loV  int
		centre    byte
		southPole bool
		firstLat  float64
		firstLon  float64
	}{
		{"north", 30000000, -110000000, 60000000, -105000000, 0, false, 30, 250},
		{"south", -40000000, 120000000, -60000000, 100000000, 0x80, true, -40, 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := polarTemplate(5, 4, tt.la1, tt.lo1, tt.laD, tt.loV, 50000000, 50000000, tt.centre, 0x40)
			g := decodeGrid(t, 20, 20, body)
			require.Equal(t, ProjectionPolarStereographic, g.Kind())
			pg := g.(*PolarStereographicGrid)
			assert.Equal(t, tt.southPole, pg.SouthPole)

			lats, lons, err := g.Coordinates()
			require.NoError(t, err)
			require.Len(t, lats, 20)
			assert.InDelta(t, tt.firstLat, lats[0], 1e-6)
			assert.InDelta(t, tt.firstLon, lons[0], 1e-6)
			for k := range lats {
				x, y := pg.forwardFunc(lats[k], lons[k])
				lat, lon := pg.inverseFunc(x, y)
				assert.InDelta(t, lats[k], lat, 1e-6)
				assert.InDelta(t, lons[k], normLon(lon), 1e-6)
			}
			pole, _ := pg.inverseFunc(0, 0)
			if tt.southPole {
				assert.Equal(t, -90.0, pole)
			} else {
				assert.Equal(t, 90.0, pole)
			}
		})
	}
}

// The polar grids below start on the LoV meridian at the true latitude with
// increments of a quarter of its distance to the pole, so the pole is at
// row 2 of column 0 and cell (2, 2) lies a quarter turn east of LoV.
func TestPolarStereographicKnownPoints(t *testing.T) {
	quarter := uint32(6371229 * 1000 / 4) // Earth radius × cos 60° / 2, mm
	tests := []struct {
		name   string
		lat    int
		loV    int
		centre byte
		scan   byte
		pole   float64
		east   float64
	}{
		{"north", 60000000, -105000000, 0, 0x40, 90, 345},
		{"south", -60000000, 100000000, 0x80, 0x00, -90, 190},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := polarTemplate(3, 3, tt.lat, tt.loV, tt.lat, tt.loV, quarter, quarter, tt.centre, tt.scan)
			lats, lons, err := decodeGrid(t, 20, 9, body).Coordinates()
			require.NoError(t, err)
			assert.InDelta(t, float64(tt.lat)*1e-6, lats[0], 1e-6)
			assert.InDelta(t, normLon(float64(tt.loV)*1e-6), lons[0], 1e-6)
			assert.InDelta(t, tt.pole, lats[6], 1e-6)
			assert.InDelta(t, float64(tt.lat)*1e-6, lats[8], 1e-6)
			assert.InDelta(t, tt.east, lons[8], 1e-6)
			// the diagonal cell sits half way round to the east
			assert.InDelta(t, normLon(float64(tt.loV)*1e-6+45), lons[4], 1e-6)
			assert.Greater(t, math.Abs(lats[4]), 60.0)
		})
	}
}

func hrrrGrid(t *testing.T) *LambertGrid {
	t.Helper()
	body := cat(
		projected(1799, 1059, 21138123, 237280472),
		sm32(38500000), sm32(262500000), u32(3000000), u32(3000000), []byte{0, 0x40},
		sm32(38500000), sm32(38500000), sm32(-90000000), sm32(0),
	)
	return decodeGrid(t, 30, 1799*1059, body).(*LambertGrid)
}

func TestLambertKnownPoints(t *testing.T) {
	g := hrrrGrid(t)
	lats, lons, err := g.Coordinates()
	require.NoError(t, err)
	x0, y0 := g.forwardFunc(g.La1, g.Lo1)
	tests := []struct {
		name     string
		lat, lon float64
		i, j     int
	}{
		{"Vail Pass CO", 39.54, -106.19, 651, 579},
		{"Denver CO", 39.74, -104.98, 686, 584},
		{"Seattle WA", 47.61, -122.33, 278, 953},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := g.forwardFunc(tt.lat, tt.lon)
			assert.InDelta(t, float64(tt.i), (x-x0)/g.Dx, 1.5)
			assert.InDelta(t, float64(tt.j), (y-y0)/g.Dy, 1.5)

			k := tt.j*1799 + tt.i
			assert.InDelta(t, tt.lat, lats[k], 0.05)
			assert.InDelta(t, normLon(tt.lon), lons[k], 0.05)
		})
	}
}

func TestPolarStereographicRejectsOppositeTrueLatitude(t *testing.T) {
	body := polarTemplate(2, 2, 30000000, 0, -90000000, 0, 1000, 1000, 0, 0)
	_, err := readSection3(section3(20, 4, body))
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestLambertGrid(t *testing.T) {
	tests := []struct {
		name              string
		la1, lo1          int
		laD, loV          int
		latin1, latin2    int
		coneLow, coneHigh float64
	}{
		{"tangent", 20000000, -130000000, 25000000, -95000000, 25000000, 25000000, math.Sin(toRad(25)), math.Sin(toRad(25))},
		{"secant", 20000000, -120000000, 40000000, -100000000, 33000000, 45000000, math.Sin(toRad(33)), math.Sin(toRad(45))},
		{"southern", -30000000, 130000000, -35000000, 135000000, -30000000, -40000000, -math.Sin(toRad(40)), -math.Sin(toRad(30))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := decodeGrid(t, 30, 12, lambertTemplate(tt.la1, tt.lo1, tt.laD, tt.loV, tt.latin1, tt.latin2, 0x40))
			require.Equal(t, ProjectionLambertConformal, g.Kind())
			lg := g.(*LambertGrid)
			assert.GreaterOrEqual(t, lg.Cone(), tt.coneLow-1e-12)
			assert.LessOrEqual(t, lg.Cone(), tt.coneHigh+1e-12)

			lats, lons, err := g.Coordinates()
			require.NoError(t, err)
			assert.InDelta(t, float64(tt.la1)*1e-6, lats[0], 1e-6)
			assert.InDelta(t, normLon(float64(tt.lo1)*1e-6), lons[0], 1e-6)
			for k := range lats {
				x, y := lg.forwardFunc(lats[k], lons[k])
				lat, lon := lg.inverseFunc(x, y)
				assert.InDelta(t, lats[k], lat, 1e-6)
				assert.InDelta(t, lons[k], normLon(lon), 1e-6)
			}
		})
	}
}

func TestReadEarth(t *testing.T) {
	shape := func(code byte, rest ...byte) []byte {
		b := make([]byte, 16)
		b[0] = code
		copy(b[1:], rest)
		return b
	}
	tests := []struct {
		name   string
		raw    []byte
		radius float64
	}{
		{"spherical 6367470", shape(0), 6367470},
		{"specified radius", shape(1, cat([]byte{0}, u32(6371000))...), 6371000},
		{"iau 1965", shape(2), (2*6378160 + 6356775) / 3.0},
		{"specified axes in km", shape(3, cat(make([]byte, 5), []byte{3}, u32(6378137), []byte{3}, u32(6356752))...), (2*6378137 + 6356752) / 3.0},
		{"spherical 6371229", shape(6), 6371229},
		{"spherical 6371200", shape(8), 6371200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := readEarth(tt.raw)
			require.NoError(t, err)
			assert.InDelta(t, tt.radius, e.SphereRadius(), 1e-6)
		})
	}

	_, err := readEarth(shape(42))
	assert.ErrorIs(t, err, ErrDecodeFailure)
	_, err = readEarth(shape(1))
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestNormLon(t *testing.T) {
	for in, want := range map[float64]float64{-180: 180, -0.5: 359.5, 360: 0, 725: 5, 0: 0} {
		assert.Equal(t, want, normLon(in), "normLon(%v)", in)
	}
}
