package influxdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devicelab/devpool-core/internal/device"
	"github.com/devicelab/devpool-core/internal/infrastructure/config"
)

func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "test-token",
		Org:           "devicelab",
		Bucket:        "devpool",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

func TestConnectDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestIsConnectedInitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestFlushDisconnected(t *testing.T) {
	client := &Client{}

	// Must be a no-op, not a panic.
	client.Flush()
}

func TestWritesDroppedWhenDisconnected(t *testing.T) {
	client := &Client{}

	// All write paths must silently drop points when disconnected.
	client.PublishDeviceEvent(device.Event{
		Type:      device.EventBorrowed,
		DeviceID:  "android-pixel8-001",
		Category:  device.CategoryAndroid,
		Status:    device.StatusBorrowed,
		Timestamp: time.Now().UTC(),
	})

	client.WritePoolGauge(device.PoolStats{
		TotalDevices: 3,
		ByCategory:   map[device.Category]int{device.CategoryAndroid: 2, device.CategoryIOS: 1},
		ByStatus:     map[device.Status]int{device.StatusAvailable: 2, device.StatusBorrowed: 1},
	})

	client.WriteToolLatency("device.borrow", "ok", 12*time.Millisecond)

	client.WritePoint("custom", map[string]string{"k": "v"}, map[string]interface{}{"n": 1})
}

func TestSetOnError(t *testing.T) {
	client := &Client{}

	var got error
	client.SetOnError(func(err error) { got = err })

	errorsCh := make(chan error, 1)
	wantErr := errors.New("write rejected")
	errorsCh <- wantErr
	close(errorsCh)

	client.handleWriteErrors(errorsCh)

	if !errors.Is(got, wantErr) {
		t.Errorf("onError received %v, want %v", got, wantErr)
	}
}
