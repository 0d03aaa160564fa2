// Package timeline gives untimed sensor readings an evenly spaced timeline and
// resamples the result to a fixed cadence.
//
// The synthesized timestamps are a presentation device: they preserve the
// order of the readings and spread them over roughly one day, but they say
// nothing about when a reading was actually taken.
package timeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mtraver/air-quality-analysis/observation"
)

const (
	minutesPerDay = 24 * 60
	secondsPerDay = minutesPerDay * 60
)

// DefaultCadence is the bucket width used for charts.
const DefaultCadence = time.Minute

var ErrInvalidInput = errors.New("timeline: invalid input")

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Granularity returns the spacing used for count observations. Up to one
// day's worth of minutes the spacing is whole minutes, otherwise whole seconds.
// Both use floor division, so a count that doesn't divide the day evenly
// under-spans it.
func Granularity(count int) (time.Duration, error) {
	if count <= 0 {
		return 0, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidInput, count)
	}

	if count <= minutesPerDay {
		return time.Duration(max(1, minutesPerDay/count)) * time.Minute, nil
	}
	return time.Duration(max(1, secondsPerDay/count)) * time.Second, nil
}

// Synthesize returns count strictly increasing instants starting at epoch and
// spaced by Granularity(count).
func Synthesize(count int, epoch time.Time) ([]time.Time, error) {
	step, err := Granularity(count)
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, count)
	for i := range times {
		times[i] = epoch.Add(time.Duration(i) * step)
	}
	return times, nil
}

// Attach synthesizes a timeline for obs starting at epoch and pairs each
// observation with its timestamp.
func Attach(obs []observation.Observation, epoch time.Time) ([]observation.Timestamped, error) {
	times, err := Synthesize(len(obs), epoch)
	if err != nil {
		return nil, err
	}

	series := make([]observation.Timestamped, len(obs))
	for i, o := range obs {
		series[i] = observation.Timestamped{Time: times[i], Observation: o}
	}
	return series, nil
}

type accumulator struct {
	oxygen float64
	aqi    float64
	count  int
}

// Resample groups series into buckets of width cadence and averages each
// column within a bucket. Buckets are aligned to the earliest timestamp in the
// series rather than to calendar boundaries. Buckets with no observations are
// omitted. The result is ordered by bucket start.
func Resample(series []observation.Timestamped, cadence time.Duration) ([]observation.Bin, error) {
	if cadence <= 0 {
		return nil, fmt.Errorf("%w: cadence must be positive, got %v", ErrInvalidInput, cadence)
	}
	if len(series) == 0 {
		return []observation.Bin{}, nil
	}

	origin := series[0].Time
	for _, ts := range series[1:] {
		if ts.Time.Before(origin) {
			origin = ts.Time
		}
	}

	buckets := make(map[int64]*accumulator)
	for _, ts := range series {
		idx := int64(ts.Time.Sub(origin) / cadence)
		acc, ok := buckets[idx]
		if !ok {
			acc = &accumulator{}
			buckets[idx] = acc
		}
		acc.oxygen += ts.Oxygen
		acc.aqi += ts.AQI
		acc.count++
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	bins := make([]observation.Bin, len(keys))
	for i, k := range keys {
		acc := buckets[k]
		n := float64(acc.count)
		bins[i] = observation.Bin{
			Start:  origin.Add(time.Duration(k) * cadence),
			Oxygen: acc.oxygen / n,
			AQI:    acc.aqi / n,
			Count:  acc.count,
		}
	}
	return bins, nil
}
