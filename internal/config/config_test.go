package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDeviceDefaultsMotion(t *testing.T) {
	d := DeviceConfig{Host: "10.0.0.10", Type: DeviceTypeMotion, Password: "123456"}
	ApplyDeviceDefaults(&d)

	assert.Equal(t, "Admin", d.Username)
	assert.Equal(t, "D-Link Motion Sensor", d.Name)
	assert.Equal(t, uint32(35), d.TimeoutSeconds)
	assert.Equal(t, uint32(5000), d.PollIntervalMillis)
	assert.Equal(t, uint32(10000), d.TransportTimeoutMillis)
	assert.Equal(t, uint(1), d.ModuleId)
}

func TestApplyDeviceDefaultsWaterName(t *testing.T) {
	d := DeviceConfig{Host: "10.0.0.11", Type: DeviceTypeWater, Password: "123456"}
	ApplyDeviceDefaults(&d)

	assert.Equal(t, "D-Link Water Sensor", d.Name)
}

func TestCheckDeviceConfig(t *testing.T) {
	valid := DeviceConfig{Host: "10.0.0.10", Type: DeviceTypeMotion, Password: "123456"}
	ApplyDeviceDefaults(&valid)
	require.NoError(t, CheckDeviceConfig(valid))

	missingHost := valid
	missingHost.Host = ""
	assert.Error(t, CheckDeviceConfig(missingHost))

	missingPassword := valid
	missingPassword.Password = ""
	assert.Error(t, CheckDeviceConfig(missingPassword))

	badType := valid
	badType.Type = "smoke"
	assert.Error(t, CheckDeviceConfig(badType))

	tooFast := valid
	tooFast.PollIntervalMillis = 100
	assert.Error(t, CheckDeviceConfig(tooFast))
}

func TestCheckMQTTTopic(t *testing.T) {
	topic, err := CheckMQTTTopic("DLink2MQTT")
	require.NoError(t, err)
	assert.Equal(t, "dlink2mqtt", topic)

	_, err = CheckMQTTTopic("bad/topic")
	assert.Error(t, err)
}
