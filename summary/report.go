package summary

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/mtraver/air-quality-analysis/aqi"
	"github.com/mtraver/air-quality-analysis/observation"
)

// Table is a header plus rows, the shape expected by exporters.
type Table struct {
	Header []string
	Rows   [][]interface{}
}

type statistic struct {
	name  string
	value func(Stats) float64
}

var statistics = []statistic{
	{"count", func(s Stats) float64 { return float64(s.Count) }},
	{"mean", func(s Stats) float64 { return s.Mean }},
	{"std", func(s Stats) float64 { return s.StdDev }},
	{"min", func(s Stats) float64 { return s.Min }},
	{"25%", func(s Stats) float64 { return s.Q25 }},
	{"50%", func(s Stats) float64 { return s.Median }},
	{"75%", func(s Stats) float64 { return s.Q75 }},
	{"max", func(s Stats) float64 { return s.Max }},
}

// Table returns one row per statistic with a column per field. Undefined
// values (NaN) become empty cells since they can't be serialized to JSON.
func (s Summary) Table() Table {
	t := Table{
		Header: []string{"statistic", observation.FieldOxygen, observation.FieldAQI},
		Rows:   make([][]interface{}, 0, len(statistics)),
	}

	for _, st := range statistics {
		t.Rows = append(t.Rows, []interface{}{
			st.name,
			cell(st.value(s.Oxygen)),
			cell(st.value(s.AQI)),
		})
	}
	return t
}

func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return v
}

// Report writes the statistics table followed by a plain-language reading of
// it and of the correlation.
func (s Summary) Report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t%s\t\n", observation.FieldOxygen, observation.FieldAQI)
	for _, st := range statistics {
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t\n", st.name, st.value(s.Oxygen), st.value(s.AQI))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lines := []string{
		"",
		"Interpretation:",
		fmt.Sprintf("- Mean AQI: %.2f (%s). This is the average pollution level.", s.AQI.Mean, aqi.String(s.AQI.Mean)),
		fmt.Sprintf("- Std Dev AQI: %.2f. This shows how much the AQI fluctuated. A high value means many spikes.", s.AQI.StdDev),
		fmt.Sprintf("- Max AQI: %.2f (%s). This was the worst air quality moment.", s.AQI.Max, aqi.String(s.AQI.Max)),
		fmt.Sprintf("- Mean O2: %.2f%%. %s", s.Oxygen.Mean, oxygenNote(s.Oxygen.Mean)),
		"",
		fmt.Sprintf("Correlation between AQI and oxygen concentration: %.3f (%s)", s.Correlation, s.Strength()),
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

// Normal atmospheric oxygen is about 20.9%.
const (
	oxygenLow  = 19.5
	oxygenHigh = 23.5
)

func oxygenNote(mean float64) string {
	switch {
	case mean < oxygenLow:
		return "Below the normal range of roughly 20.9%; the air is oxygen-deficient."
	case mean > oxygenHigh:
		return "Above the normal range of roughly 20.9%; the air is oxygen-enriched."
	default:
		return "Within the normal range of roughly 20.9%."
	}
}
