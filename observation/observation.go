// Package observation defines the readings produced by an air purifier's sensors
// and the series derived from them.
package observation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Field names used in value maps, summary tables and sink field keys.
const (
	FieldOxygen = "oxygen"
	FieldAQI    = "aqi"
)

var ErrColumnOrder = errors.New("observation: invalid column order")

// Observation is a single row of the dataset. The source data carries no
// timestamp; position in the input is the only ordering information.
type Observation struct {
	Oxygen float64 `json:"oxygen"`
	AQI    float64 `json:"aqi"`
}

// Timestamped pairs an Observation with a synthesized timestamp. The timestamp
// reflects relative ordering presented as wall-clock time, not when the reading
// was actually taken.
type Timestamped struct {
	Time time.Time
	Observation
}

// Bin is one bucket of a resampled series. Oxygen and AQI are the means of the
// observations that fell in [Start, Start+cadence).
type Bin struct {
	Start  time.Time
	Oxygen float64
	AQI    float64
	Count  int
}

// ValueMap returns the bin's means keyed by field name.
func (b Bin) ValueMap() map[string]float64 {
	return map[string]float64{
		FieldOxygen: b.Oxygen,
		FieldAQI:    b.AQI,
	}
}

// Column selects one numeric column of a series.
type Column int

const (
	Oxygen Column = iota
	AQI
)

func (c Column) String() string {
	switch c {
	case Oxygen:
		return FieldOxygen
	case AQI:
		return FieldAQI
	default:
		return fmt.Sprintf("Column(%d)", int(c))
	}
}

// Of returns the column's value from an Observation.
func (c Column) Of(o Observation) float64 {
	if c == AQI {
		return o.AQI
	}
	return o.Oxygen
}

// OfBin returns the column's mean from a Bin.
func (c Column) OfBin(b Bin) float64 {
	if c == AQI {
		return b.AQI
	}
	return b.Oxygen
}

// ColumnOrder says which spreadsheet column holds which field. Datasets in the
// wild disagree on the order, so there is no default.
type ColumnOrder [2]Column

var (
	OxygenFirst = ColumnOrder{Oxygen, AQI}
	AQIFirst    = ColumnOrder{AQI, Oxygen}
)

// ParseColumnOrder parses a comma-separated pair of field names such as
// "oxygen,aqi" or "aqi,oxygen". Surrounding whitespace and case are ignored.
func ParseColumnOrder(s string) (ColumnOrder, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return ColumnOrder{}, fmt.Errorf("%w: %q must name exactly two columns", ErrColumnOrder, s)
	}

	var order ColumnOrder
	for i, p := range parts {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case FieldOxygen, "o2", "oxygen_concentration", "o2_percentage":
			order[i] = Oxygen
		case FieldAQI:
			order[i] = AQI
		default:
			return ColumnOrder{}, fmt.Errorf("%w: unknown column %q", ErrColumnOrder, p)
		}
	}

	if order[0] == order[1] {
		return ColumnOrder{}, fmt.Errorf("%w: column %q given twice", ErrColumnOrder, order[0])
	}
	return order, nil
}

// Observation builds an Observation from a row's two values in column order.
func (c ColumnOrder) Observation(first, second float64) Observation {
	var o Observation
	for i, v := range [2]float64{first, second} {
		if c[i] == AQI {
			o.AQI = v
		} else {
			o.Oxygen = v
		}
	}
	return o
}

func (c ColumnOrder) String() string {
	return c[0].String() + "," + c[1].String()
}

// Values extracts one column from a slice of observations.
func Values(obs []Observation, c Column) []float64 {
	vals := make([]float64, len(obs))
	for i, o := range obs {
		vals[i] = c.Of(o)
	}
	return vals
}
