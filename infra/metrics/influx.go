package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/simbridge/core/metrics"
	"github.com/kilianp07/simbridge/infra/logger"
)

const influxWriteTimeout = 5 * time.Second

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// RunID tags every point so separate runs can be told apart.
	RunID string `json:"run_id"`
}

// InfluxSink writes pipeline records to InfluxDB using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	runID    string
	log      logger.Logger
}

// NewInfluxSink creates a sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: influxWriteTimeout}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		runID:    cfg.RunID,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), influxWriteTimeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) point(measurement string, t time.Time) *write.Point {
	p := write.NewPointWithMeasurement(measurement)
	if s.runID != "" {
		p = p.AddTag("run_id", s.runID)
	}
	return p.SetTime(t)
}

func (s *InfluxSink) writePoint(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), influxWriteTimeout)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCommand writes one control_command point.
func (s *InfluxSink) RecordCommand(rec coremetrics.CommandRecord) error {
	p := s.point("control_command", rec.Time).
		AddTag("sent", strconv.FormatBool(rec.Sent)).
		AddField("steer", round3(rec.Steer)).
		AddField("throttle", round3(rec.Throttle)).
		AddField("brake", round3(rec.Brake)).
		AddField("latency_ms", round3(rec.Latency.Seconds()*1000))
	return s.writePoint(p)
}

// RecordPlanner writes one planner_event point.
func (s *InfluxSink) RecordPlanner(rec coremetrics.PlannerRecord) error {
	p := s.point("planner_event", rec.Time).
		AddTag("action", rec.Action).
		AddField("index", rec.Index).
		AddField("x", round3(rec.X)).
		AddField("y", round3(rec.Y))
	return s.writePoint(p)
}

// RecordTransmitStats writes one transmit_stats point.
func (s *InfluxSink) RecordTransmitStats(st coremetrics.TransmitStats) error {
	p := s.point("transmit_stats", st.Time).
		AddField("commands_sent", st.CommandsSent).
		AddField("send_failures", st.SendFailures)
	return s.writePoint(p)
}

// Close flushes and releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
