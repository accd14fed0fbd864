package actor

import (
	"context"
	"fmt"
	"time"

	"dlink2mqtt/internal/core/domain"
	"dlink2mqtt/internal/util/actorutil"
	"dlink2mqtt/pkg/hnap"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type HNAPActor struct {
	actorId  string
	behavior actor.Behavior
	stash    *actorutil.Stash
	reader   hnap.SensorReader
	timeout  time.Duration
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewHNAPActor(actorId string, reader hnap.SensorReader, timeout time.Duration, logger *zap.Logger) *HNAPActor {
	act := &HNAPActor{
		actorId:  actorId,
		reader:   reader,
		timeout:  timeout,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(actorId, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HNAPActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HNAPActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hnap@starting started")
		// a failed open panics so the supervisor retries with backoff
		openCtx, cancel := context.WithTimeout(context.Background(), state.timeout)
		defer cancel()
		if err := state.reader.Open(openCtx); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.reader.Close()
	default:
		state.logger.Debug("hnap@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HNAPActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("hnap@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      state.actorId,
			Healthy: true,
			State:   "idle",
		})
	case domain.PollSensorRequest:
		state.logger.Debug("hnap@default: PollSensorRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.pollSensor),
			mapTaskResult[domain.PollSensorResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.PollSensorResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.GetDeviceInfoRequest:
		state.logger.Debug("hnap@default: GetDeviceInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getDeviceInfo),
			mapTaskResult[domain.GetDeviceInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetDeviceInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case *actor.Stopping:
		state.reader.Close()
	default:
		state.logger.Debug("hnap@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HNAPActor) WaitingDevice(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("hnap@waitingDevice backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.reader.Close()
	default:
		state.logger.Debug("hnap@waitingDevice stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *HNAPActor) pollSensor() (*domain.PollSensorResponse, error) {
	pollCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	reading, err := a.reader.Poll(pollCtx)
	if err != nil {
		a.logger.Debug("poll failed", zap.Error(err))
		return nil, err
	}
	return &domain.PollSensorResponse{
		Reading: reading,
	}, nil
}

func (a *HNAPActor) getDeviceInfo() (*domain.GetDeviceInfoResponse, error) {
	infoCtx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	info, err := a.reader.Info(infoCtx)
	if err != nil {
		a.logger.Debug("device info failed", zap.Error(err))
		return nil, err
	}
	return &domain.GetDeviceInfoResponse{
		DeviceId: a.actorId,
		Info:     info,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
