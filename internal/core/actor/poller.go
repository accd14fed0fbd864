package actor

import (
	"fmt"
	"time"

	"dlink2mqtt/internal/config"
	"dlink2mqtt/internal/core/domain"
	"dlink2mqtt/internal/core/events"
	"dlink2mqtt/internal/core/service"
	. "dlink2mqtt/internal/util/actorutil"
	"dlink2mqtt/pkg/hnap"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// PollerActor drives one configured device: it ticks on the poll interval,
// asks the device actor for a reading and turns the tracked state into
// update events on the event stream.
type PollerActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	actorId     string
	sensorId    string
	deviceCfg   config.DeviceConfig
	deviceActor *actor.PID
	eventStream *eventstream.EventStream
	tracker     *service.SensorStateTracker
	lastState   service.BinaryState

	logger *zap.Logger
}

type pollTick struct {
}

func NewPollerActor(deviceCfg config.DeviceConfig, deviceActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *PollerActor {
	sensorId := domain.DeviceSensorId(deviceCfg)
	kind := hnap.SensorMotion
	if deviceCfg.Type == config.DeviceTypeWater {
		kind = hnap.SensorWater
	}
	actorId := fmt.Sprintf("%s_%s", domain.ACTOR_ID_POLLER_PREFIX, sensorId)
	act := &PollerActor{
		deviceCfg:   deviceCfg,
		deviceActor: deviceActor,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger(actorId, logger),
		eventStream: eventStream,
		actorId:     actorId,
		sensorId:    sensorId,
		tracker:     service.NewSensorStateTracker(kind, time.Duration(deviceCfg.TimeoutSeconds)*time.Second),
		lastState:   service.StateUnknown,
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollerActor) pollInterval() time.Duration {
	return time.Duration(state.deviceCfg.PollIntervalMillis) * time.Millisecond
}

func (state *PollerActor) requestTimeout() time.Duration {
	return time.Duration(state.deviceCfg.TransportTimeoutMillis)*time.Millisecond + 1*time.Second
}

func (state *PollerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poller@default started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduler.RequestOnce(state.pollInterval(), ctx.Self(), pollTick{})
	case domain.ActorHealthRequest:
		state.logger.Debug("poller@default: ActorHealthRequest")
		// an unreachable device is a sensor condition, not a poller fault
		ctx.Respond(domain.ActorHealthResponse{
			Id:      state.actorId,
			Healthy: true,
			State:   state.lastState.String(),
		})
	case pollTick:
		state.logger.Debug("poller@default tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.deviceActor, domain.PollSensorRequest{}, state.requestTimeout()), func(err error) any {
			return domain.PollSensorResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		// schedule next tick
		state.scheduler.RequestOnce(state.pollInterval(), ctx.Self(), pollTick{})
		state.behavior.BecomeStacked(state.WaitingPollReceive)
	default:
		state.logger.Debug("poller@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *PollerActor) WaitingPollReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.PollSensorResponse:
		var newState service.BinaryState
		if msg.HasResponseError() || msg.Reading == nil {
			state.logger.Warn("poller@waiting poll failed", zap.Error(msg.GetResponseError()))
			newState = state.tracker.ApplyFailure()
		} else {
			state.logger.Debug("poller@waiting PollSensorResponse")
			newState = state.tracker.ApplyReading(*msg.Reading, time.Now())
		}
		state.publishState(newState)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("poller@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) publishState(newState service.BinaryState) {
	evs := events.BinaryStateToUpdateEvents(state.sensorId, newState)
	for _, ev := range evs {
		state.eventStream.Publish(ev)
	}
	state.lastState = newState
}
