package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "dlink2mqtt/internal/adapter/actor"
	"dlink2mqtt/internal/config"
	"dlink2mqtt/internal/core/domain"
	"dlink2mqtt/internal/util"
	"dlink2mqtt/pkg/hnap"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func(devCfg config.DeviceConfig, actorId string) *adactor.HNAPActor {
			var reader hnap.SensorReader
			if devCfg.Type == config.DeviceTypeWater {
				reader = hnap.NewTestWaterSensorReader()
			} else {
				reader = hnap.NewTestMotionSensorReader()
			}
			return adactor.NewHNAPActor(actorId, reader, 10*time.Second, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	context.Stop(pid)

	as.Shutdown()
}
