package device

import "time"

// Event types emitted by the manager on successful mutations.
const (
	EventCreated  = "device_created"
	EventUpdated  = "device_updated"
	EventDeleted  = "device_deleted"
	EventBorrowed = "device_borrowed"
	EventReturned = "device_returned"
)

// Event describes one lifecycle change, broadcast to interested sinks
// (WebSocket hub, MQTT, metrics).
type Event struct {
	Type      string         `json:"event"`
	DeviceID  string         `json:"device_id"`
	Category  Category       `json:"category"`
	Status    Status         `json:"status,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventSink receives lifecycle events. Implementations must not block;
// slow consumers should buffer or drop internally.
type EventSink interface {
	PublishDeviceEvent(evt Event)
}

// publish fans an event out to every registered sink. A nil or empty sink
// list is fine; event delivery is best-effort and never fails a mutation.
func (m *Manager) publish(evtType string, d *Device, data map[string]any) {
	if len(m.sinks) == 0 {
		return
	}

	evt := Event{
		Type:      evtType,
		DeviceID:  d.DeviceID,
		Category:  d.Category,
		Status:    d.Status,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	for _, sink := range m.sinks {
		sink.PublishDeviceEvent(evt)
	}
}
