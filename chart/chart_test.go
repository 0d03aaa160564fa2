package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mtraver/air-quality-analysis/observation"
)

var (
	testEpoch = time.Date(2018, time.March, 25, 0, 0, 0, 0, time.UTC)
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
)

func testObservations() []observation.Observation {
	return []observation.Observation{
		{Oxygen: 20.9, AQI: 12},
		{Oxygen: 20.7, AQI: 35},
		{Oxygen: 20.4, AQI: 51},
		{Oxygen: 20.8, AQI: 22},
		{Oxygen: 20.6, AQI: 40},
	}
}

func checkPNG(t *testing.T, path string) {
	t.Helper()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	if !bytes.HasPrefix(b, pngMagic) {
		t.Errorf("%s is not a PNG", path)
	}
}

func TestTimeSeries(t *testing.T) {
	var bins []observation.Bin
	for i, o := range testObservations() {
		bins = append(bins, observation.Bin{
			Start:  testEpoch.Add(time.Duration(i) * time.Minute),
			Oxygen: o.Oxygen,
			AQI:    o.AQI,
			Count:  1,
		})
	}

	for _, c := range []observation.Column{observation.AQI, observation.Oxygen} {
		t.Run(c.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), c.String()+".png")
			if err := TimeSeries(bins, c, path); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			checkPNG(t, path)
		})
	}
}

func TestOverlay(t *testing.T) {
	var series []observation.Timestamped
	for i, o := range testObservations() {
		series = append(series, observation.Timestamped{Time: testEpoch.Add(time.Duration(i) * 288 * time.Minute), Observation: o})
	}

	path := filepath.Join(t.TempDir(), "overlay.png")
	if err := Overlay(series, path); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	checkPNG(t, path)
}

func TestDistributions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distributions.png")
	if err := Distributions(testObservations(), path); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	checkPNG(t, path)
}

func TestEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := TimeSeries(nil, observation.AQI, filepath.Join(dir, "a.png")); err == nil {
		t.Error("Expected error for empty time series, but error is nil")
	}
	if err := Overlay(nil, filepath.Join(dir, "b.png")); err == nil {
		t.Error("Expected error for empty overlay, but error is nil")
	}
	if err := Distributions(nil, filepath.Join(dir, "c.png")); err == nil {
		t.Error("Expected error for empty distributions, but error is nil")
	}
}

func TestBinCount(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{1, 1},
		{2, 2},
		{1440, 12},
		{2000, 12},
	}

	for _, c := range cases {
		if got := binCount(c.n); got != c.want {
			t.Errorf("binCount(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}
