package actor

import (
	"errors"
	"testing"
	"time"

	"dlink2mqtt/internal/core/domain"
	"dlink2mqtt/internal/util/actorutil"
	"dlink2mqtt/pkg/hnap"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPollSensorHNAPActor(t *testing.T) {

	assert := assert.New(t)

	reader := hnap.NewTestMotionSensorReader()
	trigger := time.Now().Add(-5 * time.Second).Truncate(time.Second)
	reader.SetReading(hnap.Reading{
		Kind:          hnap.SensorMotion,
		LatestTrigger: trigger,
	})

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewHNAPActor("hnap_motion_test", reader, 10*time.Second, logger)
	})
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.PollSensorRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.PollSensorResponse)

	assert.False(resp.HasResponseError())
	assert.NotNil(resp.Reading)
	assert.Equal(hnap.SensorMotion, resp.Reading.Kind)
	assert.Equal(trigger, resp.Reading.LatestTrigger)

	context.Stop(pid)

	as.Shutdown()
}

func TestPollSensorErrorHNAPActor(t *testing.T) {

	assert := assert.New(t)

	reader := hnap.NewTestWaterSensorReader()
	reader.SetPollError(&hnap.ConnectionError{Err: errors.New("connection refused")})

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewHNAPActor("hnap_water_test", reader, 10*time.Second, logger)
	})
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.PollSensorRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.PollSensorResponse)

	assert.True(resp.HasResponseError())
	assert.Nil(resp.Reading)

	context.Stop(pid)

	as.Shutdown()
}

func TestGetDeviceInfoHNAPActor(t *testing.T) {

	assert := assert.New(t)

	reader := hnap.NewTestMotionSensorReader()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewHNAPActor("hnap_motion_test", reader, 10*time.Second, logger)
	})
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.GetDeviceInfoRequest{}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetDeviceInfoResponse)

	assert.False(resp.HasResponseError())
	assert.Equal("hnap_motion_test", resp.DeviceId)
	assert.Equal("D-Link", resp.Info.Vendor)
	assert.Equal("DCH-S150", resp.Info.Model)

	context.Stop(pid)

	as.Shutdown()
}
