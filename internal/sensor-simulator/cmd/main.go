package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/config"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/logging"
	sensorSimulator "github.com/LeonardoBeccarini/sdcc_agronomy/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config")
	sensorID := flag.String("sensor-id", "sensor1", "unique sensor identifier")
	fieldID := flag.String("field-id", "field1", "unique field identifier")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	lat := flag.Float64("lat", 41.51109, "latitude")
	lon := flag.Float64("lon", 12.37007, "longitude")
	rootDepth := flag.Float64("root-depth-cm", 30, "root zone depth")
	decay := flag.Float64("decay-per-min", 0.01, "VWC points lost per minute")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Must(cfg.Logging.Level, cfg.Logging.Development)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mqCfg := &rabbitmq.RabbitMQConfig{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		User:     cfg.MQTT.User,
		Password: cfg.MQTT.Password,
		ClientID: cfg.MQTT.ClientID + "-sim-" + *fieldID + "-" + *sensorID,
	}
	client, err := rabbitmq.NewRabbitMQConn(ctx, mqCfg, logger)
	if err != nil {
		logger.Fatalw("mqtt connect failed", "err", err)
	}

	probe := sensorSimulator.Probe{
		FieldID:     *fieldID,
		SensorID:    *sensorID,
		Latitude:    *lat,
		Longitude:   *lon,
		RootDepthCm: *rootDepth,
	}
	decisionTopic := strings.NewReplacer("{field}", probe.FieldID, "{sensor}", probe.SensorID).
		Replace(cfg.MQTT.DecisionTopic)

	publisher := rabbitmq.NewPublisher(client, "", logger)
	consumer := rabbitmq.NewConsumer(client, logger, decisionTopic)
	generator := sensorSimulator.NewDataGenerator(*decay, sensorSimulator.DefaultClimate())

	seed := generator.Seed(ctx, probe)
	logger.Infow("sensor: seeded", "field", probe.FieldID, "sensor", probe.SensorID, "vwc", seed)

	sim := sensorSimulator.NewSensorSimulator(consumer, publisher, generator, probe,
		strings.TrimSuffix(cfg.MQTT.RawTopic, "#")+"{field}/{sensor}", logger)
	sim.Start(ctx, *interval)
}
