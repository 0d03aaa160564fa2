package export

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/mtraver/air-quality-analysis/observation"
)

const influxMeasurement = "air_quality"

// newInfluxDBPoints makes one point per bin. A point is identified by its
// measurement, tags and time, so writing the same bins again overwrites them.
func newInfluxDBPoints(dataset string, bins []observation.Bin) []*write.Point {
	points := make([]*write.Point, 0, len(bins))
	for _, b := range bins {
		p := influxdb2.NewPointWithMeasurement(influxMeasurement).
			AddTag("dataset", dataset)
		for name, v := range b.ValueMap() {
			p = p.AddField(name, v)
		}
		points = append(points, p.AddField("count", b.Count).SetTime(b.Start))
	}

	return points
}

type InfluxDB struct {
	serverURL string
	token     string
	org       string
	bucket    string
}

func NewInfluxDB(serverURL, token, org, bucket string) *InfluxDB {
	return &InfluxDB{
		serverURL: serverURL,
		token:     token,
		org:       org,
		bucket:    bucket,
	}
}

func (db *InfluxDB) WriteSeries(ctx context.Context, dataset string, bins []observation.Bin) error {
	if len(bins) == 0 {
		return nil
	}

	client := influxdb2.NewClient(db.serverURL, db.token)
	defer client.Close()

	writeAPI := client.WriteAPIBlocking(db.org, db.bucket)
	if err := writeAPI.WritePoint(ctx, newInfluxDBPoints(dataset, bins)...); err != nil {
		return fmt.Errorf("export: influxdb: %w", err)
	}

	return nil
}
