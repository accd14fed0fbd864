package service

import (
	"time"

	"dlink2mqtt/pkg/hnap"
)

type BinaryState int

const (
	StateUnknown BinaryState = iota
	StateOff
	StateOn
	StateUnavailable
)

func (s BinaryState) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateOn:
		return "on"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Available reports whether the sensor has a usable on/off value.
func (s BinaryState) Available() bool {
	return s == StateOn || s == StateOff
}

func (s BinaryState) IsOn() bool {
	return s == StateOn
}

// SensorStateTracker turns raw poll readings into the exposed binary state.
//
// Motion sensors report the last detection time; the tracker holds the on
// state for the configured timeout after that detection and drops to off on
// the first poll at or past the deadline. Water sensors mirror the raw leak
// flag with no debounce. Any poll failure parks the state at unavailable
// until the next successful poll.
type SensorStateTracker struct {
	kind    hnap.SensorKind
	timeout time.Duration

	state           BinaryState
	lastTriggeredAt time.Time
}

func NewSensorStateTracker(kind hnap.SensorKind, timeout time.Duration) *SensorStateTracker {
	return &SensorStateTracker{
		kind:    kind,
		timeout: timeout,
		state:   StateUnknown,
	}
}

func (t *SensorStateTracker) State() BinaryState {
	return t.state
}

func (t *SensorStateTracker) LastTriggeredAt() time.Time {
	return t.lastTriggeredAt
}

// ApplyReading folds one successful poll into the state.
func (t *SensorStateTracker) ApplyReading(reading hnap.Reading, now time.Time) BinaryState {
	var on bool
	switch t.kind {
	case hnap.SensorWater:
		on = reading.WaterDetected
	case hnap.SensorMotion:
		if !reading.LatestTrigger.IsZero() && reading.LatestTrigger.After(t.lastTriggeredAt) {
			t.lastTriggeredAt = reading.LatestTrigger
		}
		// on while now < lastTrigger + timeout
		on = !t.lastTriggeredAt.IsZero() && now.Sub(t.lastTriggeredAt) < t.timeout
	}
	if on {
		t.state = StateOn
	} else {
		t.state = StateOff
	}
	return t.state
}

// ApplyFailure folds a failed poll into the state. The last trigger time is
// kept so motion debounce survives a transient outage.
func (t *SensorStateTracker) ApplyFailure() BinaryState {
	t.state = StateUnavailable
	return t.state
}
