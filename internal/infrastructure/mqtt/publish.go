package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/devicelab/devpool-core/internal/device"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
//
// Retained Messages:
//   - When true, the broker stores the last message for each topic and
//     new subscribers immediately receive it
//   - Use for state topics (device status, pool stats)
//   - Don't use for events
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString is a convenience method that publishes a string payload.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes a retained message with the configured default QoS.
//
// Use for state updates where new subscribers should receive the current state.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// PublishDeviceEvent broadcasts a device lifecycle event to the broker.
//
// It implements device.EventSink. Delivery is best-effort: failures are
// logged and dropped so a broker outage never blocks or fails a mutation.
// The event goes to the per-device event topic, and a retained status
// snapshot goes to the per-device status topic so late subscribers see
// current state.
func (c *Client) PublishDeviceEvent(evt device.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Error("failed to encode device event", "device_id", evt.DeviceID, "error", err)
		}
		return
	}

	topics := Topics{}
	if err := c.Publish(topics.DeviceEvent(evt.DeviceID), payload, byte(c.cfg.QoS), false); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("failed to publish device event",
				"device_id", evt.DeviceID,
				"event", evt.Type,
				"error", err,
			)
		}
		return
	}

	// Deletion tombstones the retained status by publishing an empty payload.
	if evt.Type == device.EventDeleted {
		_ = c.PublishRetained(topics.DeviceStatus(evt.DeviceID), nil)
		return
	}

	status := fmt.Sprintf(
		`{"device_id":"%s","category":"%s","status":"%s","timestamp":"%s"}`,
		evt.DeviceID, evt.Category, evt.Status, evt.Timestamp.Format(time.RFC3339),
	)
	if err := c.PublishRetained(topics.DeviceStatus(evt.DeviceID), []byte(status)); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("failed to publish device status",
				"device_id", evt.DeviceID,
				"error", err,
			)
		}
	}
}

// PublishPoolStats publishes retained pool-wide counters.
//
// Called by the pool manager after mutations so dashboards subscribed to
// devpool/pool/stats always see current utilisation.
func (c *Client) PublishPoolStats(stats map[string]any) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return c.PublishRetained(Topics{}.PoolStats(), payload)
}
