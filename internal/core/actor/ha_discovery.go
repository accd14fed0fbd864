package actor

import (
	"errors"
	"fmt"
	"time"

	"dlink2mqtt/internal/config"
	"dlink2mqtt/internal/core/domain"
	"dlink2mqtt/internal/util/actorutil"
	"dlink2mqtt/pkg/hnap"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// DeviceActorRef ties a configured device to its spawned device actor.
type DeviceActorRef struct {
	Config config.DeviceConfig
	PID    *actor.PID
}

type HADiscoveryActor struct {
	config   *config.Config
	behavior actor.Behavior
	stash    *actorutil.Stash

	devices   []DeviceActorRef
	mqttActor *actor.PID

	healthyRecv    int
	unhealthy      int
	infoRecv       int
	infoByDeviceId map[string]*hnap.DeviceInfo

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, devices []DeviceActorRef, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		devices:   devices,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// check MQTT and device actors are healthy before announcing
		state.healthyRecv = 0
		state.unhealthy = 0
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		for _, dev := range state.devices {
			actorId := deviceActorId(dev.Config)
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(dev.PID, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      actorId,
					Healthy: false,
				}
			})
		}
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if !msg.Healthy {
			state.unhealthy++
		}
		if state.healthyRecv == len(state.devices)+1 {
			if state.unhealthy > 0 {
				panic(errors.New("MQTT actor or a device actor is not healthy"))
			}
			// ask every device actor for its metadata
			state.infoRecv = 0
			state.infoByDeviceId = make(map[string]*hnap.DeviceInfo)
			for _, dev := range state.devices {
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(dev.PID, domain.GetDeviceInfoRequest{}, 5*time.Second), func(err error) any {
					return domain.GetDeviceInfoResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
			}
			state.behavior.Become(state.WaitingInfoReceive)
			state.stash.UnstashAll(ctx)
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDeviceInfoResponse:
		if msg.HasResponseError() {
			// announce without metadata rather than blocking discovery
			state.logger.Warn("hadiscovery@info: device info failed", zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Debug("hadiscovery@info: GetDeviceInfoResponse", zap.String("device", msg.DeviceId))
			state.infoByDeviceId[msg.DeviceId] = msg.Info
		}
		state.infoRecv++
		if state.infoRecv == len(state.devices) {
			state.publishDiscovery(ctx)
			state.behavior.Become(state.Done)
		}
	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) publishDiscovery(ctx actor.Context) {
	var sensors []domain.GenericSensor

	bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
	sensors = append(sensors, domain.BridgeSensors(bridgeDevice)...)

	for _, dev := range state.devices {
		info := state.infoByDeviceId[deviceActorId(dev.Config)]
		sensorDevice := domain.SensorDevice(dev.Config, info)
		sensorDevice.ViaDevice = bridgeDevice.Id
		sensors = append(sensors, domain.DeviceBinarySensor(sensorDevice, dev.Config))
	}

	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		Sensors: sensors,
	})
}

func deviceActorId(cfg config.DeviceConfig) string {
	return fmt.Sprintf("%s_%s", domain.ACTOR_ID_DEVICE_PREFIX, domain.DeviceSensorId(cfg))
}
