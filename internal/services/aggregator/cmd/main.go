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
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/services/aggregator"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config")
	interval := flag.Duration("interval", time.Minute, "aggregation interval")
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
		ClientID: cfg.MQTT.ClientID + "-aggregator",
	}
	client, err := rabbitmq.NewRabbitMQConn(ctx, mqCfg, logger)
	if err != nil {
		logger.Fatalw("mqtt connect failed", "err", err)
	}

	publisher := rabbitmq.NewPublisher(client, "", logger)
	consumer := rabbitmq.NewConsumer(client, logger, cfg.MQTT.RawTopic)

	svc := aggregator.NewDataAggregatorService(consumer, publisher,
		strings.TrimSuffix(cfg.MQTT.AggregatedTopic, "#")+"{field}/{sensor}", *interval, logger)

	logger.Info("aggregator: running")
	svc.Start(ctx)
}
