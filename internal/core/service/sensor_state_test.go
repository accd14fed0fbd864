package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dlink2mqtt/pkg/hnap"
)

func TestMotionDebounceWindow(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewSensorStateTracker(hnap.SensorMotion, 35*time.Second)

	assert.Equal(t, StateUnknown, tr.State())

	// detection at base, poll at base
	st := tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base}, base)
	assert.Equal(t, StateOn, st)
	assert.True(t, st.IsOn())

	// 20s after detection, still inside the window
	st = tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base}, base.Add(20*time.Second))
	assert.Equal(t, StateOn, st)

	// 40s after detection, past the window
	st = tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base}, base.Add(40*time.Second))
	assert.Equal(t, StateOff, st)
}

func TestMotionBoundaryIsOff(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewSensorStateTracker(hnap.SensorMotion, 35*time.Second)

	st := tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base}, base.Add(35*time.Second))
	assert.Equal(t, StateOff, st)
}

func TestMotionNewDetectionExtendsWindow(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewSensorStateTracker(hnap.SensorMotion, 35*time.Second)

	tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base}, base)
	// fresh detection 30s later restarts the countdown
	st := tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base.Add(30 * time.Second)}, base.Add(50*time.Second))
	assert.Equal(t, StateOn, st)
	assert.Equal(t, base.Add(30*time.Second), tr.LastTriggeredAt())

	st = tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base.Add(30 * time.Second)}, base.Add(70*time.Second))
	assert.Equal(t, StateOff, st)
}

func TestMotionIgnoresOlderTrigger(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewSensorStateTracker(hnap.SensorMotion, 35*time.Second)

	tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base}, base)
	tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base.Add(-time.Hour)}, base.Add(10*time.Second))
	assert.Equal(t, base, tr.LastTriggeredAt())
}

func TestMotionNoDetectionYet(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewSensorStateTracker(hnap.SensorMotion, 35*time.Second)

	st := tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion}, now)
	assert.Equal(t, StateOff, st)
}

func TestWaterMirrorsRawFlag(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewSensorStateTracker(hnap.SensorWater, 0)

	st := tr.ApplyReading(hnap.Reading{Kind: hnap.SensorWater, WaterDetected: true}, now)
	assert.Equal(t, StateOn, st)

	st = tr.ApplyReading(hnap.Reading{Kind: hnap.SensorWater, WaterDetected: false}, now.Add(5*time.Second))
	assert.Equal(t, StateOff, st)
}

func TestFailureThenRecovery(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewSensorStateTracker(hnap.SensorMotion, 35*time.Second)

	tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base}, base)

	st := tr.ApplyFailure()
	assert.Equal(t, StateUnavailable, st)
	assert.False(t, st.Available())

	// recovery inside the original window goes straight back to on
	st = tr.ApplyReading(hnap.Reading{Kind: hnap.SensorMotion, LatestTrigger: base}, base.Add(10*time.Second))
	assert.Equal(t, StateOn, st)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "off", StateOff.String())
	assert.Equal(t, "on", StateOn.String())
	assert.Equal(t, "unavailable", StateUnavailable.String())
}
