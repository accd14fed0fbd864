package hnap

import (
	"context"
	"sync"
	"time"
)

// TestSensorReader is an in-memory SensorReader for tests. Reading and errors
// can be swapped between polls from the test goroutine.
type TestSensorReader struct {
	SensorKind SensorKind

	mu      sync.Mutex
	reading Reading
	pollErr error
	openErr error
}

func NewTestMotionSensorReader() *TestSensorReader {
	return &TestSensorReader{
		SensorKind: SensorMotion,
		reading: Reading{
			Kind:          SensorMotion,
			LatestTrigger: time.Unix(0, 0),
		},
	}
}

func NewTestWaterSensorReader() *TestSensorReader {
	return &TestSensorReader{
		SensorKind: SensorWater,
		reading: Reading{
			Kind: SensorWater,
		},
	}
}

func (r *TestSensorReader) SetReading(reading Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reading = reading
	r.pollErr = nil
}

func (r *TestSensorReader) SetPollError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pollErr = err
}

func (r *TestSensorReader) SetOpenError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openErr = err
}

func (r *TestSensorReader) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openErr
}

func (r *TestSensorReader) Close() error {
	return nil
}

func (r *TestSensorReader) Kind() SensorKind {
	return r.SensorKind
}

func (r *TestSensorReader) Info(ctx context.Context) (*DeviceInfo, error) {
	return &DeviceInfo{
		Vendor:           "D-Link",
		Model:            "DCH-S150",
		ModelDescription: "D-Link WiFi Motion Sensor",
		Firmware:         "1.22",
		Hardware:         "A1",
		MAC:              "00:11:22:33:44:55",
	}, nil
}

func (r *TestSensorReader) Poll(ctx context.Context) (*Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pollErr != nil {
		return nil, r.pollErr
	}
	reading := r.reading
	return &reading, nil
}
