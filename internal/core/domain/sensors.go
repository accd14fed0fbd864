package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"dlink2mqtt/internal/config"
	"dlink2mqtt/pkg/hnap"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE = "bridge"

	DEVICE_CLASS_MOTION       = "motion"
	DEVICE_CLASS_MOISTURE     = "moisture"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"

	ENTITY_CLASS_DIAGNOSTIC = "diagnostic"
	ENTITY_CLASS_CONFIG     = "config"

	SENSOR_TYPE_BINARY = "binary_sensor"
)

// DeviceSensorId is the stable id of a configured sensor, derived from its
// type and host so renames do not produce new entities.
func DeviceSensorId(cfg config.DeviceConfig) string {
	return fmt.Sprintf("%s_%s", cfg.Type, md5HashShort(strings.ToLower(cfg.Host)))
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("dlink2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "dlink2mqtt",
		Model:        "HNAP MQTT bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("dlink2mqtt %s", md5HashShort(baseTopic)),
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// bridge connectivity
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

// SensorDevice builds the Home Assistant device registry entry of a polled
// sensor. Info may be nil if the device never answered GetDeviceSettings.
func SensorDevice(cfg config.DeviceConfig, info *hnap.DeviceInfo) Device {
	dev := Device{
		Id:           fmt.Sprintf("dch_%s", md5HashShort(strings.ToLower(cfg.Host))),
		Name:         cfg.Name,
		Manufacturer: "D-Link",
	}
	if info != nil {
		if info.Vendor != "" {
			dev.Manufacturer = info.Vendor
		}
		dev.Model = info.Model
		dev.Version = info.Firmware
	}
	return dev
}

// DeviceBinarySensor is the single binary sensor a configured device exposes.
func DeviceBinarySensor(device Device, cfg config.DeviceConfig) GenericSensor {
	deviceClass := DEVICE_CLASS_MOTION
	if cfg.Type == config.DeviceTypeWater {
		deviceClass = DEVICE_CLASS_MOISTURE
	}
	id := DeviceSensorId(cfg)
	return GenericSensor{
		Device:      device,
		Id:          id,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        cfg.Name,
		DeviceClass: deviceClass,
		UniqueId:    uniqueId(device.Id, id),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
