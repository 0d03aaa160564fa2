package export

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/mtraver/air-quality-analysis/observation"
)

var testTimestamp = time.Date(2018, time.March, 25, 0, 0, 0, 0, time.UTC)

func TestNewInfluxDBPoints(t *testing.T) {
	cases := []struct {
		name string
		bins []observation.Bin
		want []*write.Point
	}{
		{
			name: "empty",
			bins: nil,
			want: []*write.Point{},
		},
		{
			name: "many",
			bins: []observation.Bin{
				{Start: testTimestamp, Oxygen: 20.9, AQI: 42, Count: 1},
				{Start: testTimestamp.Add(time.Minute), Oxygen: 20.5, AQI: 37.5, Count: 2},
			},
			want: []*write.Point{
				influxdb2.NewPointWithMeasurement("air_quality").AddTag("dataset", "foo").
					AddField("aqi", 42.0).AddField("count", 1).AddField("oxygen", 20.9).SetTime(testTimestamp),
				influxdb2.NewPointWithMeasurement("air_quality").AddTag("dataset", "foo").
					AddField("aqi", 37.5).AddField("count", 2).AddField("oxygen", 20.5).SetTime(testTimestamp.Add(time.Minute)),
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := newInfluxDBPoints("foo", c.bins)

			// Fields are added in map order; SortFields makes the comparison stable.
			for _, p := range got {
				p.SortFields()
			}
			for _, p := range c.want {
				p.SortFields()
			}

			if diff := cmp.Diff(got, c.want, cmp.AllowUnexported(write.Point{})); diff != "" {
				t.Errorf("Unexpected result (-got +want):\n%s", diff)
			}
		})
	}
}
