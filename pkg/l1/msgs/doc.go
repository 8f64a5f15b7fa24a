// Package msgs provides the L1 telemetry envelope of L0 messages.
package msgs

// L1 messages are hardware-agnostic representations of L0 messages,
// carried as protobuf Struct values so consumers (MQTT subscribers,
// dashboards) need no knowledge of the L0 wire format.
//
// Producer: bridge
// Consumer: monitors, remote controllers
