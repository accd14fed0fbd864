package util

import (
	"dlink2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	motion := config.DeviceConfig{
		Name:     "Hall Motion",
		Host:     "-.-.-.-",
		Type:     config.DeviceTypeMotion,
		Password: "123456",
	}
	config.ApplyDeviceDefaults(&motion)
	water := config.DeviceConfig{
		Name:     "Basement Leak",
		Host:     "-.-.-.-",
		Type:     config.DeviceTypeWater,
		Password: "123456",
	}
	config.ApplyDeviceDefaults(&water)
	return config.Config{
		LogLevel: zap.DebugLevel,
		Devices:  []config.DeviceConfig{motion, water},
		MQTT: config.MQTTConfig{
			Host: "localhost",
			Port: 1883,
		},
		BridgeConfig: config.BridgeConfig{
			HeartbeatIntervalSeconds: 300,
		},
		Port: 8080,
	}
}
