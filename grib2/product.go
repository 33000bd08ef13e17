package grib2

import (
	"encoding/binary"
	"math"
	"time"

	"gribdecode.com/grib2/reader"
)

// Surface is a fixed surface (Code table 4.5) with its scaled value.
type Surface struct {
	Type    uint8   `json:"type"`
	Value   float64 `json:"value"`
	Missing bool    `json:"missing,omitempty"`
}

// Ensemble carries the octets added by templates 4.1 and 4.11.
type Ensemble struct {
	Type         uint8 `json:"type"`
	Perturbation uint8 `json:"perturbation"`
	Size         uint8 `json:"size"`
}

// TimeRange is one statistical processing specification of 4.8/4.11.
type TimeRange struct {
	Process       uint8  `json:"process"`
	IncrementType uint8  `json:"incrementType"`
	Unit          uint8  `json:"unit"`
	Length        uint32 `json:"length"`
	IncrementUnit uint8  `json:"incrementUnit"`
	Increment     uint32 `json:"increment"`
}

// Statistics carries the octets added by templates 4.8 and 4.11.
type Statistics struct {
	End           time.Time   `json:"end"`
	MissingValues uint32      `json:"missingValues"`
	Ranges        []TimeRange `json:"ranges"`
}

// Product is the decoded product definition (Section 4).
type Product struct {
	Template          uint16      `json:"template"`
	Category          uint8       `json:"category"`
	Number            uint8       `json:"number"`
	GeneratingProcess uint8       `json:"generatingProcess"`
	BackgroundProcess uint8       `json:"backgroundProcess"`
	ForecastProcess   uint8       `json:"forecastProcess"`
	CutoffHours       uint16      `json:"cutoffHours"`
	CutoffMinutes     uint8       `json:"cutoffMinutes"`
	TimeUnit          uint8       `json:"timeUnit"`
	ForecastTime      int64       `json:"forecastTime"`
	FirstSurface      Surface     `json:"firstSurface"`
	SecondSurface     Surface     `json:"secondSurface"`
	Ensemble          *Ensemble   `json:"ensemble,omitempty"`
	Statistics        *Statistics `json:"statistics,omitempty"`
	Coordinates       []float32   `json:"coordinates,omitempty"`
}

// Time units (Code table 4.4).
const (
	UnitMinute  = 0
	UnitHour    = 1
	UnitDay     = 2
	UnitMonth   = 3
	UnitYear    = 4
	UnitDecade  = 5
	UnitNormal  = 6
	UnitCentury = 7
	Unit3Hours  = 10
	Unit6Hours  = 11
	Unit12Hours = 12
	UnitSecond  = 13
)

var unitDurations = map[uint8]time.Duration{
	UnitMinute:  time.Minute,
	UnitHour:    time.Hour,
	UnitDay:     24 * time.Hour,
	Unit3Hours:  3 * time.Hour,
	Unit6Hours:  6 * time.Hour,
	Unit12Hours: 12 * time.Hour,
	UnitSecond:  time.Second,
}

// calendarYears is the length in years of the calendar units.
var calendarYears = map[uint8]int{
	UnitYear:    1,
	UnitDecade:  10,
	UnitNormal:  30,
	UnitCentury: 100,
}

// addUnits moves t by value units of Code table 4.4.
func addUnits(t time.Time, unit uint8, value int64) (time.Time, error) {
	if d, ok := unitDurations[unit]; ok {
		return t.Add(time.Duration(value) * d), nil
	}
	if unit == UnitMonth {
		return t.AddDate(0, int(value), 0), nil
	}
	if years, ok := calendarYears[unit]; ok {
		return t.AddDate(int(value)*years, 0, 0), nil
	}
	return t, failure(4, "unknown time unit %d", unit)
}

// ForecastDuration returns the forecast time as a duration. Calendar units
// (month and longer) have no fixed length and return an error.
func (p *Product) ForecastDuration() (time.Duration, error) {
	d, ok := unitDurations[p.TimeUnit]
	if !ok {
		return 0, failure(4, "time unit %d has no fixed duration", p.TimeUnit)
	}
	return time.Duration(p.ForecastTime) * d, nil
}

// ValidTime returns the time the product is valid at. For statistically
// processed products this is the end of the overall time interval.
func (p *Product) ValidTime(reference time.Time) (time.Time, error) {
	if p.Statistics != nil && !p.Statistics.End.IsZero() {
		return p.Statistics.End, nil
	}
	return addUnits(reference, p.TimeUnit, p.ForecastTime)
}

// readSurface decodes type, scale factor and scaled value (6 octets).
func readSurface(b []byte) Surface {
	s := Surface{Type: b[0]}
	if s.Type == 255 || (b[1] == 0xFF && reader.AllOnes(b[2:6])) {
		s.Missing = true
		return s
	}
	scale := reader.SignMagnitude(b[1:2])
	value := reader.SignMagnitude(b[2:6])
	s.Value = float64(value) * math.Pow(10, -float64(scale))
	return s
}

const (
	product0Len  = 25
	product1Len  = product0Len + 3
	statFixedLen = 12 // end time, range count, missing count
	timeRangeLen = 12
)

// readProductCore decodes the octets shared by 4.0, 4.1, 4.8 and 4.11.
func readProductCore(p *Product, t []byte) {
	p.Category = t[0]
	p.Number = t[1]
	p.GeneratingProcess = t[2]
	p.BackgroundProcess = t[3]
	p.ForecastProcess = t[4]
	p.CutoffHours = binary.BigEndian.Uint16(t[5:7])
	p.CutoffMinutes = t[7]
	p.TimeUnit = t[8]
	p.ForecastTime = reader.SignMagnitude(t[9:13])
	p.FirstSurface = readSurface(t[13:19])
	p.SecondSurface = readSurface(t[19:25])
}

func readEnsemble(t []byte) *Ensemble {
	return &Ensemble{Type: t[0], Perturbation: t[1], Size: t[2]}
}

func readStatistics(t []byte) (*Statistics, error) {
	if len(t) < statFixedLen {
		return nil, outOfRange(4, "statistics need %d bytes, got %d", statFixedLen, len(t))
	}
	year := int(binary.BigEndian.Uint16(t[0:2]))
	month, day := int(t[2]), int(t[3])
	end := time.Date(year, time.Month(month), day, int(t[4]), int(t[5]), int(t[6]), 0, time.UTC)
	if month < 1 || month > 12 || end.Day() != day || t[4] > 23 || t[5] > 59 || t[6] > 59 {
		return nil, failure(4, "invalid end of overall time interval %04d-%02d-%02d", year, month, day)
	}
	n := int(t[7])
	s := &Statistics{End: end, MissingValues: binary.BigEndian.Uint32(t[8:12])}
	ranges := t[statFixedLen:]
	if len(ranges) < n*timeRangeLen {
		return nil, outOfRange(4, "%d time ranges need %d bytes, got %d", n, n*timeRangeLen, len(ranges))
	}
	s.Ranges = make([]TimeRange, n)
	for i := range s.Ranges {
		r := ranges[i*timeRangeLen:]
		s.Ranges[i] = TimeRange{
			Process:       r[0],
			IncrementType: r[1],
			Unit:          r[2],
			Length:        binary.BigEndian.Uint32(r[3:7]),
			IncrementUnit: r[7],
			Increment:     binary.BigEndian.Uint32(r[8:12]),
		}
	}
	return s, nil
}

func decodeProduct0(p *Product, t []byte) error {
	if len(t) < product0Len {
		return outOfRange(4, "template needs %d bytes, got %d", product0Len, len(t))
	}
	readProductCore(p, t)
	return nil
}

func decodeProduct1(p *Product, t []byte) error {
	if len(t) < product1Len {
		return outOfRange(4, "template needs %d bytes, got %d", product1Len, len(t))
	}
	readProductCore(p, t)
	p.Ensemble = readEnsemble(t[product0Len:])
	return nil
}

func decodeProduct8(p *Product, t []byte) (err error) {
	if err = decodeProduct0(p, t); err != nil {
		return err
	}
	p.Statistics, err = readStatistics(t[product0Len:])
	return err
}

func decodeProduct11(p *Product, t []byte) (err error) {
	if err = decodeProduct1(p, t); err != nil {
		return err
	}
	p.Statistics, err = readStatistics(t[product1Len:])
	return err
}

// readSection4 decodes the product definition section, including the
// optional list of vertical coordinate values at its end.
func readSection4(sec []byte) (*Product, error) {
	h, err := readSection4Header(sec)
	if err != nil {
		return nil, err
	}
	decode, err := productTemplate(h.ProductDefinitionTemplateNumber)
	if err != nil {
		return nil, err
	}
	p := &Product{Template: h.ProductDefinitionTemplateNumber}
	body := sec[9:]
	nv := int(h.CoordinatesCount)
	if nv*4 > len(body) {
		return nil, outOfRange(4, "%d coordinate values do not fit in %d bytes", nv, len(body))
	}
	if err := decode(p, body[:len(body)-nv*4]); err != nil {
		return nil, err
	}
	if nv > 0 {
		list := body[len(body)-nv*4:]
		p.Coordinates = make([]float32, nv)
		for i := range p.Coordinates {
			p.Coordinates[i] = math.Float32frombits(binary.BigEndian.Uint32(list[i*4:]))
		}
	}
	return p, nil
}
