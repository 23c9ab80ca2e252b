package recorder

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/jackysetiawan6/Android-Homie/internal/telemetry"
)

// InfluxSink forwards valid readings to an InfluxDB bucket as points
// on the "telemetry" measurement. It is optional; the dashboard works
// without it.
type InfluxSink struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
	device string
}

// NewInfluxSink connects a blocking write API for the given org and
// bucket. The token may be empty for unauthenticated local instances.
func NewInfluxSink(url, token, org, bucket, device string) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	return &InfluxSink{
		client: client,
		write:  client.WriteAPIBlocking(org, bucket),
		device: device,
	}
}

// Write stores one reading as an InfluxDB point.
func (s *InfluxSink) Write(ctx context.Context, r telemetry.Reading) error {
	if !r.Valid {
		return nil
	}

	at := r.At
	if at.IsZero() {
		at = time.Now()
	}

	p := influxdb2.NewPointWithMeasurement("telemetry").
		AddTag("device", s.device).
		AddField("temperature", r.Temperature).
		AddField("humidity", r.Humidity).
		AddField("light", r.Light).
		AddField("led", r.LED.Wire()).
		SetTime(at)

	return s.write.WritePoint(ctx, p)
}

// Close shuts down the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
