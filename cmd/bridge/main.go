package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "dlink2mqtt/internal/adapter/actor"
	"dlink2mqtt/internal/config"
	"dlink2mqtt/internal/core/actor"
	"dlink2mqtt/internal/core/domain"
	"dlink2mqtt/internal/server"
	"dlink2mqtt/internal/util/actorutil"
	"dlink2mqtt/pkg/hnap"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, deviceActorProvider(logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	// periodic bridge heartbeat
	heartbeatScheduler, err := startHeartbeat(cfg, ctx, pid)
	if err != nil {
		logger.Error("could not start heartbeat", zap.Error(err))
	}
	if heartbeatScheduler != nil {
		defer heartbeatScheduler.Stop()
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => DLINK2MQTT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("DLINK2MQTT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("dlink2mqtt")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// devices: fill defaults, then validate
	if len(cfg.Devices) == 0 {
		return nil, errors.New("no devices configured")
	}
	for i := range cfg.Devices {
		config.ApplyDeviceDefaults(&cfg.Devices[i])
		if err := config.CheckDeviceConfig(cfg.Devices[i]); err != nil {
			return nil, fmt.Errorf("device %d: %w", i, err)
		}
	}

	return &cfg, nil
}

func deviceActorProvider(logger *zap.Logger) actor.DeviceActorProvider {
	return func(devCfg config.DeviceConfig, actorId string) *adactor.HNAPActor {
		transportTimeout := time.Duration(devCfg.TransportTimeoutMillis) * time.Millisecond
		client := hnap.NewClient(devCfg.Host, devCfg.Username, devCfg.Password, transportTimeout, logger)
		var reader hnap.SensorReader
		if devCfg.Type == config.DeviceTypeWater {
			reader = hnap.NewWaterSensor(client, int(devCfg.ModuleId))
		} else {
			reader = hnap.NewMotionSensor(client, int(devCfg.ModuleId))
		}
		return adactor.NewHNAPActor(actorId, reader, transportTimeout, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func startHeartbeat(cfg *config.Config, ctx *pactor.RootContext, master *pactor.PID) (quartz.Scheduler, error) {
	interval := time.Duration(cfg.BridgeConfig.HeartbeatIntervalSeconds) * time.Second
	if interval <= 0 {
		return nil, nil
	}
	sched := quartz.NewStdScheduler()
	sched.Start(context.Background())

	heartbeatJob := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		ctx.Send(master, domain.BridgeHeartbeat{})
		return true, nil
	})
	err := sched.ScheduleJob(quartz.NewJobDetail(heartbeatJob, quartz.NewJobKey("bridge_heartbeat")),
		quartz.NewSimpleTrigger(interval))
	if err != nil {
		sched.Stop()
		return nil, err
	}
	return sched, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "dlink2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("bridge.heartbeat_interval_seconds", 300)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	for i := range cfg.Devices {
		cfg.Devices[i].Password = "*redacted*"
	}
	slog.Info("Using", "config", cfg)
}
