package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

// BinarySensorUpdateEvent carries an on/off sensor value.
type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

// SensorAvailabilityUpdateEvent marks a sensor online/offline. An offline
// sensor shows "unavailable" in Home Assistant instead of a stale off state.
type SensorAvailabilityUpdateEvent struct {
	SensorUpdateEventMixIn
	Available bool
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}
