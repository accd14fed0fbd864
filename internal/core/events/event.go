package events

import (
	. "dlink2mqtt/internal/core/domain"
	"dlink2mqtt/internal/core/service"
)

// BinaryStateToUpdateEvents maps a tracked sensor state to the update events
// to publish for it. An unavailable or unknown state only emits the
// availability event; a settled state emits availability plus the value.
func BinaryStateToUpdateEvents(sensorId string, state service.BinaryState) []any {
	var events []any

	events = append(events, SensorAvailabilityUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: sensorId,
		},
		Available: state.Available(),
	})
	if state.Available() {
		events = append(events, BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: sensorId,
			},
			Value: state.IsOn(),
		})
	}

	return events
}

func BridgeStateUpdateEvents(online bool) []any {
	var events []any
	events = append(events, BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	})
	return events
}
