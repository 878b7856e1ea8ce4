// Package mqtt publishes device pool events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing device lifecycle events and retained status snapshots
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The pool manager is a pure publisher. External consumers (lab dashboards,
// CI schedulers, alerting) subscribe to the devpool/# hierarchy to track
// device availability without polling the HTTP API. Nothing flows back in
// over MQTT, so the client deliberately has no subscribe support.
//
//	Pool Manager → MQTT Broker → Dashboards / Schedulers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Register as an event sink; the manager calls PublishDeviceEvent
//	// on every successful mutation.
//	manager.AddSink(client)
package mqtt
