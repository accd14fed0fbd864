package domain

import "dlink2mqtt/pkg/hnap"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"

	// per-device actors are named <prefix>_<device id>
	ACTOR_ID_DEVICE_PREFIX = "hnap"
	ACTOR_ID_POLLER_PREFIX = "poller"
)

type GetDeviceInfoRequest struct {
	ActorRequestMixIn
}

type GetDeviceInfoResponse struct {
	ActorResponseMixIn
	DeviceId string
	Info     *hnap.DeviceInfo
}

type PollSensorRequest struct {
	ActorRequestMixIn
}

type PollSensorResponse struct {
	ActorResponseMixIn
	Reading *hnap.Reading
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// BridgeHeartbeat asks the master to re-publish the bridge online state. Sent
// by the quartz heartbeat job.
type BridgeHeartbeat struct {
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
