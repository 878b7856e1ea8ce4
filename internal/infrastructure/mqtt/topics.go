package mqtt

import "fmt"

// Topic prefixes for the pool manager's MQTT surface.
//
// The hierarchy is intentionally shallow:
//
//	devpool/device/{device_id}/event    lifecycle events (created, borrowed, ...)
//	devpool/device/{device_id}/status   retained status snapshot
//	devpool/pool/stats                  retained pool-wide counters
//	devpool/system/status               online/offline status of the manager itself
const (
	// TopicPrefix is the base for all pool manager topics.
	TopicPrefix = "devpool"

	// TopicPrefixDevice is the base for per-device topics.
	TopicPrefixDevice = "devpool/device"

	// TopicPrefixPool is the base for pool-wide topics.
	TopicPrefixPool = "devpool/pool"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "devpool/system"
)

// Topics provides builders for pool manager MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	eventTopic := topics.DeviceEvent("android-pixel8-001")
//	// Returns: "devpool/device/android-pixel8-001/event"
type Topics struct{}

// DeviceEvent returns the topic for lifecycle events of a device.
//
// Example: devpool/device/android-pixel8-001/event
func (Topics) DeviceEvent(deviceID string) string {
	return fmt.Sprintf("%s/%s/event", TopicPrefixDevice, deviceID)
}

// DeviceStatus returns the retained status topic for a device.
//
// Example: devpool/device/android-pixel8-001/status
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixDevice, deviceID)
}

// PoolStats returns the retained pool-wide statistics topic.
//
// Example: devpool/pool/stats
func (Topics) PoolStats() string {
	return fmt.Sprintf("%s/stats", TopicPrefixPool)
}

// SystemStatus returns the system status topic.
//
// Example: devpool/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceEvents returns a pattern matching lifecycle events for all devices.
//
// Pattern: devpool/device/+/event
func (Topics) AllDeviceEvents() string {
	return fmt.Sprintf("%s/+/event", TopicPrefixDevice)
}

// AllDeviceStatuses returns a pattern matching status snapshots for all devices.
//
// Pattern: devpool/device/+/status
func (Topics) AllDeviceStatuses() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixDevice)
}

// AllTopics returns a pattern matching all pool manager topics.
//
// Pattern: devpool/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
