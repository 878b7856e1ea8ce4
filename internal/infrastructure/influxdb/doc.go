// Package influxdb records pool utilisation history in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data for:
//   - Device lifecycle events (created, borrowed, returned, ...)
//   - Pool-wide utilisation gauges (devices per category and status)
//   - Tool call latency
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "devicelab",
//	    Bucket: "devpool",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Register as an event sink; lifecycle events are recorded automatically.
//	manager.AddSink(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval), which keeps per-mutation overhead negligible.
package influxdb
