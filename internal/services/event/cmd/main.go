package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/config"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/logging"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/services/event"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/store/influx"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Must(cfg.Logging.Level, cfg.Logging.Development)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := influx.New(cfg.Influx, cfg.Location())
	if err != nil {
		logger.Fatalw("influx", "err", err)
	}
	defer store.Close()

	mqCfg := &rabbitmq.RabbitMQConfig{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		User:     cfg.MQTT.User,
		Password: cfg.MQTT.Password,
		ClientID: cfg.MQTT.ClientID + "-event",
	}
	client, err := rabbitmq.NewRabbitMQConn(ctx, mqCfg, logger)
	if err != nil {
		logger.Fatalw("mqtt connect failed", "err", err)
	}

	topic := strings.NewReplacer("{field}/{sensor}", "#").Replace(cfg.MQTT.DecisionTopic)
	writer := event.NewWriter(store, logger)
	svc := event.NewService(rabbitmq.NewConsumer(client, logger, topic), writer, logger)

	mux := http.NewServeMux()
	mux.Handle("/healthz", event.NewHealthHandler(client.IsConnectionOpen, writer))
	mux.Handle("/readyz", event.NewReadyHandler(client.IsConnectionOpen, store.Ready, writer, 2*time.Second))
	mux.Handle("/decisions", event.NewDecisionHistoryHandler(store))

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infow("event: HTTP listening", "port", cfg.HTTP.Port)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("http server error", "err", err)
		}
	}()

	logger.Infow("event: subscribing", "topic", topic)
	svc.Start(ctx)

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = hs.Shutdown(shCtx)
}
