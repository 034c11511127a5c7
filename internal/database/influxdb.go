package database

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"netsim-consolidate/internal/config"
	"netsim-consolidate/internal/dataframe"
	"netsim-consolidate/internal/logging"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

const (
	valueField     = "value"
	writeChunkSize = 5000
	connectTimeout = 10 * time.Second
)

type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	org      string
}

func NewInfluxDBClient(cfg config.InfluxDBConfig) (*InfluxDBClient, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(cfg.Host, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.WithField("host", cfg.Host).WithError(err).Error("Failed to connect to InfluxDB")
		client.Close()
		return nil, err
	}

	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		logger.WithFields(logrus.Fields{
			"host":    cfg.Host,
			"status":  health.Status,
			"message": msg,
		}).Error("InfluxDB health check failed")
		client.Close()
		return nil, fmt.Errorf("influxdb health check failed: status %s", health.Status)
	}

	logger.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"bucket": cfg.Bucket,
		"org":    cfg.Org,
	}).Info("Connected to InfluxDB")

	return &InfluxDBClient{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
		org:      cfg.Org,
	}, nil
}

// WriteDatasets exports every dataset of a batch, in chunks.
func (idb *InfluxDBClient) WriteDatasets(ctx context.Context, batch string, datasets []dataframe.Dataset) error {
	logger := logging.GetLogger()

	total := 0
	for _, d := range datasets {
		points := DatasetPoints(batch, d)
		for start := 0; start < len(points); start += writeChunkSize {
			end := min(start+writeChunkSize, len(points))
			if err := idb.writeAPI.WritePoint(ctx, points[start:end]...); err != nil {
				return fmt.Errorf("failed to write %s points: %w", d.Metric, err)
			}
		}
		total += len(points)
	}

	logger.WithFields(logrus.Fields{
		"bucket":   idb.bucket,
		"datasets": len(datasets),
		"points":   total,
	}).Info("Exported datasets to InfluxDB")
	return nil
}

// CountPoints returns how many values of a batch the bucket holds.
func (idb *InfluxDBClient) CountPoints(ctx context.Context, batch string) (int64, error) {
	result, err := idb.queryAPI.Query(ctx, pointCountQuery(idb.bucket, batch))
	if err != nil {
		return 0, fmt.Errorf("failed to query point count: %w", err)
	}
	defer result.Close()

	var total int64
	for result.Next() {
		if n, ok := result.Record().Value().(int64); ok {
			total += n
		}
	}
	if result.Err() != nil {
		return 0, fmt.Errorf("error reading query results: %w", result.Err())
	}
	return total, nil
}

func pointCountQuery(bucket, batch string) string {
	return fmt.Sprintf(`
		from(bucket: %q)
		|> range(start: 0)
		|> filter(fn: (r) => r.batch == %q and r._field == %q)
		|> group()
		|> count()
	`, bucket, batch, valueField)
}

// DatasetPoints converts a dataset to points. The measurement is the metric
// name; simulated seconds are placed on the Unix epoch.
func DatasetPoints(batch string, d dataframe.Dataset) []*write.Point {
	points := make([]*write.Point, 0, len(d.Records))
	for _, r := range d.Records {
		points = append(points, influxdb2.NewPoint(d.Metric.String(),
			map[string]string{
				"batch":  batch,
				"run_id": strconv.Itoa(r.RunID),
			},
			map[string]interface{}{
				valueField: r.Value,
			},
			SimulatedTime(r.Time)))
	}
	return points
}

func SimulatedTime(seconds float64) time.Time {
	return time.Unix(0, 0).Add(time.Duration(math.Round(seconds * float64(time.Second)))).UTC()
}

func (idb *InfluxDBClient) Close() {
	if idb.client != nil {
		idb.client.Close()
	}
}
