package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/devicelab/devpool-core/internal/device"
)

// PublishDeviceEvent records a device lifecycle event as a time-series point.
//
// It implements device.EventSink. The write is non-blocking; points are
// batched and sent asynchronously, and a disconnected client drops the
// point silently.
//
// Measurement: lifecycle_events
// Tags: device_id, category, event
// Fields: count=1, status
func (c *Client) PublishDeviceEvent(evt device.Event) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"lifecycle_events",
		map[string]string{
			"device_id": evt.DeviceID,
			"category":  string(evt.Category),
			"event":     evt.Type,
		},
		map[string]interface{}{
			"count":  1,
			"status": string(evt.Status),
		},
		evt.Timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WritePoolGauge records pool-wide utilisation counters.
//
// Called after mutations so dashboards can graph availability over time.
//
// Measurement: pool_utilization
// Fields: total plus one field per category and per status
func (c *Client) WritePoolGauge(stats device.PoolStats) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"total": stats.TotalDevices,
	}
	for category, n := range stats.ByCategory {
		fields["category_"+string(category)] = n
	}
	for status, n := range stats.ByStatus {
		fields["status_"+string(status)] = n
	}

	point := write.NewPoint("pool_utilization", nil, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WriteToolLatency records the execution time of one tool call.
//
// Measurement: tool_latency
// Tags: tool, outcome
// Fields: duration_ms
func (c *Client) WriteToolLatency(tool string, outcome string, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"tool_latency",
		map[string]string{
			"tool":    tool,
			"outcome": outcome,
		},
		map[string]interface{}{
			"duration_ms": float64(duration.Microseconds()) / 1000.0,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
