// Package summary computes descriptive statistics over a dataset and renders
// them as a console report and as a table for export.
package summary

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/mtraver/air-quality-analysis/observation"
)

var ErrEmpty = errors.New("summary: no observations")

// Stats describes one column.
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64 // sample standard deviation; NaN for a single value
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Strength classifies the magnitude of a correlation coefficient.
type Strength int

const (
	Undefined Strength = iota
	Weak
	Moderate
	Strong
)

func (s Strength) String() string {
	switch s {
	case Weak:
		return "weak"
	case Moderate:
		return "moderate"
	case Strong:
		return "strong"
	default:
		return "undefined"
	}
}

// Classify buckets a Pearson coefficient by its magnitude. NaN, which results
// from a constant column, is Undefined.
func Classify(r float64) Strength {
	if math.IsNaN(r) {
		return Undefined
	}

	switch abs := math.Abs(r); {
	case abs > 0.7:
		return Strong
	case abs > 0.3:
		return Moderate
	default:
		return Weak
	}
}

// Summary holds per-column statistics and the correlation between the columns.
type Summary struct {
	Oxygen      Stats
	AQI         Stats
	Correlation float64
}

// Strength classifies the summary's correlation.
func (s Summary) Strength() Strength {
	return Classify(s.Correlation)
}

// Describe computes a Summary of obs.
func Describe(obs []observation.Observation) (Summary, error) {
	if len(obs) == 0 {
		return Summary{}, ErrEmpty
	}

	oxygen := observation.Values(obs, observation.Oxygen)
	aqi := observation.Values(obs, observation.AQI)

	var s Summary
	var err error
	if s.Oxygen, err = describe(oxygen); err != nil {
		return Summary{}, fmt.Errorf("summary: %s: %w", observation.FieldOxygen, err)
	}
	if s.AQI, err = describe(aqi); err != nil {
		return Summary{}, fmt.Errorf("summary: %s: %w", observation.FieldAQI, err)
	}

	s.Correlation = math.NaN()
	if len(obs) > 1 {
		s.Correlation = stat.Correlation(aqi, oxygen, nil)
	}

	return s, nil
}

// quantile interpolates linearly between the order statistics of sorted at
// rank (n-1)p, the convention spreadsheet tools use for quartiles.
func quantile(sorted []float64, p float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

func describe(vals []float64) (Stats, error) {
	mean, err := stats.Mean(vals)
	if err != nil {
		return Stats{}, err
	}
	min, err := stats.Min(vals)
	if err != nil {
		return Stats{}, err
	}
	max, err := stats.Max(vals)
	if err != nil {
		return Stats{}, err
	}
	median, err := stats.Median(vals)
	if err != nil {
		return Stats{}, err
	}

	std := math.NaN()
	if len(vals) > 1 {
		if std, err = stats.StandardDeviationSample(vals); err != nil {
			return Stats{}, err
		}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	return Stats{
		Count:  len(vals),
		Mean:   mean,
		StdDev: std,
		Min:    min,
		Q25:    quantile(sorted, 0.25),
		Median: median,
		Q75:    quantile(sorted, 0.75),
		Max:    max,
	}, nil
}
