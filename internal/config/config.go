package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	DeviceTypeMotion = "motion"
	DeviceTypeWater  = "water"

	DefaultUsername           = "Admin"
	DefaultMotionTimeoutSecs  = 35
	DefaultMotionName         = "D-Link Motion Sensor"
	DefaultWaterName          = "D-Link Water Sensor"
	DefaultPollIntervalMillis = 5000
	DefaultTransportTimeoutMs = 10000
	DefaultModuleId           = 1
)

type Config struct {
	LogLevel zapcore.Level
	Devices  []DeviceConfig `mapstructure:"devices"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`

	BridgeConfig BridgeConfig `mapstructure:"bridge"`
	Port         uint         `mapstructure:"port"`
	HttpLog      bool         `mapstructure:"http_log"`
}

type DeviceConfig struct {
	Name     string
	Host     string
	Type     string
	Username string
	Password string
	// TimeoutSeconds is the motion-clearing debounce window. It is not the
	// transport timeout.
	TimeoutSeconds         uint32 `mapstructure:"timeout"`
	PollIntervalMillis     uint32 `mapstructure:"poll_interval_millis"`
	TransportTimeoutMillis uint32 `mapstructure:"transport_timeout_millis"`
	ModuleId               uint   `mapstructure:"module_id"`
}

type BridgeConfig struct {
	HeartbeatIntervalSeconds uint32 `mapstructure:"heartbeat_interval_seconds"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// ApplyDeviceDefaults fills the optional fields of a device entry.
func ApplyDeviceDefaults(d *DeviceConfig) {
	if d.Username == "" {
		d.Username = DefaultUsername
	}
	if d.Name == "" {
		if d.Type == DeviceTypeWater {
			d.Name = DefaultWaterName
		} else {
			d.Name = DefaultMotionName
		}
	}
	if d.TimeoutSeconds == 0 {
		d.TimeoutSeconds = DefaultMotionTimeoutSecs
	}
	if d.PollIntervalMillis == 0 {
		d.PollIntervalMillis = DefaultPollIntervalMillis
	}
	if d.TransportTimeoutMillis == 0 {
		d.TransportTimeoutMillis = DefaultTransportTimeoutMs
	}
	if d.ModuleId == 0 {
		d.ModuleId = DefaultModuleId
	}
}

// CheckDeviceConfig rejects entries that cannot produce a working sensor.
// A failed check is fatal at setup: the entity is never created.
func CheckDeviceConfig(d DeviceConfig) error {
	if d.Host == "" {
		return errors.New("device config param host is required")
	}
	if d.Password == "" {
		return fmt.Errorf("device config param password is required (device %s)", d.Host)
	}
	if d.Type != DeviceTypeMotion && d.Type != DeviceTypeWater {
		return fmt.Errorf("device config param type must be %q or %q (device %s)",
			DeviceTypeMotion, DeviceTypeWater, d.Host)
	}
	if d.PollIntervalMillis < 1000 {
		return fmt.Errorf("device config param poll_interval_millis should be >= 1000 (device %s)", d.Host)
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
