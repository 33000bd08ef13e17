package grib2

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// MissingInt marks missing points in Record.DataInt.
const MissingInt = math.MinInt32

// GridProperties is the grid description stored next to the values.
type GridProperties struct {
	Template   uint16 `json:"template"`
	Projection string `json:"projection"`
	Ni         int    `json:"ni"`
	Nj         int    `json:"nj"`
	Points     int    `json:"points"`
	Definition Grid   `json:"definition"`
}

// Record is a decoded field flattened into one row for the sinks.
type Record struct {
	UUID         uuid.UUID      `json:"id"`
	Date         time.Time      `json:"gribDatetime"`
	ValidTime    time.Time      `json:"validTime"`
	ForecastTime int64          `json:"forecastMinutes"`
	Param        string         `json:"parameter"`
	ParamName    string         `json:"parameterName"`
	Units        string         `json:"units"`
	SurfaceType  string         `json:"surfaceType"`
	SurfaceValue string         `json:"surfaceValue"`
	Grid         GridProperties `json:"grid"`
	Data         []float64      `json:"-"`
	DataInt      []int          `json:"dataInt"`
}

// NewRecord flattens a decoded message. Missing points keep the message's
// missing value in Data and become MissingInt in DataInt.
func NewRecord(m *Message) (*Record, error) {
	valid, err := m.ValidTime()
	if err != nil {
		return nil, err
	}
	param := m.Parameter()
	level, value := m.Level()
	ni, nj := m.Grid.Dims()
	r := &Record{
		UUID:         uuid.New(),
		Date:         m.ReferenceTime(),
		ValidTime:    valid,
		ForecastTime: int64(valid.Sub(m.ReferenceTime()) / time.Minute),
		Param:        param.Abbreviation,
		ParamName:    param.Name,
		Units:        param.Units,
		SurfaceType:  level.Name,
		SurfaceValue: surfaceValue(m.Product.FirstSurface, value),
		Grid: GridProperties{
			Template:   m.Grid.TemplateNumber(),
			Projection: m.Grid.Kind().String(),
			Ni:         ni,
			Nj:         nj,
			Points:     m.Grid.NumPoints(),
			Definition: m.Grid,
		},
		Data:    m.Values,
		DataInt: make([]int, len(m.Values)),
	}
	for i, v := range m.Values {
		if IsMissing(v, m.Missing) || math.IsNaN(v) || math.Abs(v) > math.MaxInt32 {
			r.DataInt[i] = MissingInt
			continue
		}
		r.DataInt[i] = int(math.Round(v))
	}
	return r, nil
}

func surfaceValue(s Surface, v float64) string {
	if s.Missing {
		return ""
	}
	return fmt.Sprintf("%g", v)
}

func (r *Record) MarshalJSON() ([]byte, error) {
	type plain Record
	return json.Marshal(struct {
		*plain
		Data []Float `json:"data"`
	}{(*plain)(r), Floats(r.Data)})
}
