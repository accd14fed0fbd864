package hnap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type SensorKind string

const (
	SensorMotion SensorKind = "motion"
	SensorWater  SensorKind = "water"
)

// DeviceInfo carries the metadata reported by GetDeviceSettings.
type DeviceInfo struct {
	Vendor           string
	Model            string
	ModelDescription string
	Firmware         string
	Hardware         string
	MAC              string
}

// Reading is one poll result. For motion sensors LatestTrigger is the last
// detection time reported by the device; for water sensors WaterDetected is
// the raw leak flag.
type Reading struct {
	Kind          SensorKind
	LatestTrigger time.Time
	WaterDetected bool
}

// SensorReader abstracts one polled HNAP sensor.
type SensorReader interface {
	Open(ctx context.Context) error
	Close() error
	Kind() SensorKind
	Info(ctx context.Context) (*DeviceInfo, error)
	Poll(ctx context.Context) (*Reading, error)
}

// deviceSensor caches device settings and the supported SOAP action set for
// one module of a device.
type deviceSensor struct {
	client   *Client
	moduleID int
	settings Values
	actions  []string
}

func (s *deviceSensor) Open(ctx context.Context) error {
	return s.init(ctx)
}

func (s *deviceSensor) Close() error {
	s.client.Reset()
	return nil
}

func (s *deviceSensor) init(ctx context.Context) error {
	if s.settings == nil {
		settings, err := s.client.Call(ctx, "GetDeviceSettings", nil)
		if err != nil {
			return err
		}
		s.settings = settings
	}
	if s.actions == nil {
		actions, err := s.soapActions(ctx)
		if err != nil {
			return err
		}
		s.actions = actions
	}
	return nil
}

// soapActions returns the action names supported by the module, stripped of
// their namespace prefix.
func (s *deviceSensor) soapActions(ctx context.Context) ([]string, error) {
	resp, err := s.client.Call(ctx, "GetDeviceSettings", map[string]string{
		"ModuleID": strconv.Itoa(s.moduleID),
	})
	if err != nil {
		return nil, err
	}
	var actions []string
	for _, url := range resp.All("string") {
		actions = append(actions, url[strings.LastIndex(url, "/")+1:])
	}
	return actions, nil
}

func (s *deviceSensor) supports(action string) bool {
	for _, a := range s.actions {
		if a == action {
			return true
		}
	}
	return false
}

func (s *deviceSensor) Info(ctx context.Context) (*DeviceInfo, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return &DeviceInfo{
		Vendor:           s.settings.Get("VendorName"),
		Model:            s.settings.Get("ModelName"),
		ModelDescription: s.settings.Get("ModelDescription"),
		Firmware:         s.settings.Get("FirmwareVersion"),
		Hardware:         s.settings.Get("HardwareVersion"),
		MAC:              s.settings.Get("DeviceMacId"),
	}, nil
}

// MotionSensor polls a DCH-S150 style motion detector.
type MotionSensor struct {
	deviceSensor
}

func NewMotionSensor(client *Client, moduleID int) *MotionSensor {
	return &MotionSensor{deviceSensor{client: client, moduleID: moduleID}}
}

func (s *MotionSensor) Kind() SensorKind {
	return SensorMotion
}

// Poll reads the last detection time. Newer firmwares expose
// GetLatestDetection; older ones only keep a motion log, so the newest log
// entry timestamp is used instead.
func (s *MotionSensor) Poll(ctx context.Context) (*Reading, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}

	var detectTime string
	if s.supports("GetLatestDetection") {
		resp, err := s.client.Call(ctx, "GetLatestDetection", map[string]string{
			"ModuleID": strconv.Itoa(s.moduleID),
		})
		if err != nil {
			return nil, err
		}
		detectTime = resp.Get("LatestDetectTime")
	} else {
		resp, err := s.client.Call(ctx, "GetMotionDetectorLogs", map[string]string{
			"ModuleID":   strconv.Itoa(s.moduleID),
			"MaxCount":   "1",
			"PageOffset": "1",
			"StartTime":  "0",
			"EndTime":    "All",
		})
		if err != nil {
			return nil, err
		}
		detectTime = resp.Get("TimeStamp")
	}

	secs, err := strconv.ParseFloat(detectTime, 64)
	if err != nil {
		return nil, &ProtocolError{Reason: fmt.Sprintf("unparseable detection time %q", detectTime)}
	}
	return &Reading{
		Kind:          SensorMotion,
		LatestTrigger: time.Unix(int64(secs), 0),
	}, nil
}

// WaterSensor polls a DCH-S160 style water leak detector.
type WaterSensor struct {
	deviceSensor
}

func NewWaterSensor(client *Client, moduleID int) *WaterSensor {
	return &WaterSensor{deviceSensor{client: client, moduleID: moduleID}}
}

func (s *WaterSensor) Kind() SensorKind {
	return SensorWater
}

func (s *WaterSensor) Poll(ctx context.Context) (*Reading, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	resp, err := s.client.Call(ctx, "GetWaterDetectorState", map[string]string{
		"ModuleID": strconv.Itoa(s.moduleID),
	})
	if err != nil {
		return nil, err
	}
	return &Reading{
		Kind:          SensorWater,
		WaterDetected: resp.Get("IsWater") == "true",
	}, nil
}
