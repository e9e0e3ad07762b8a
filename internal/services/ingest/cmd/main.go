package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/config"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/logging"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/metrics"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/services/ingest"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/store/influx"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/store/memory"
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

	mqCfg := &rabbitmq.RabbitMQConfig{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		User:     cfg.MQTT.User,
		Password: cfg.MQTT.Password,
		ClientID: cfg.MQTT.ClientID + "-ingest",
	}
	mqClient, err := rabbitmq.NewRabbitMQConn(ctx, mqCfg, logger)
	if err != nil {
		logger.Fatalw("mqtt connect failed", "err", err)
	}
	consumer := rabbitmq.NewConsumer(mqClient, logger, cfg.MQTT.RawTopic)

	store, err := influx.New(cfg.Influx, cfg.Location())
	if err != nil {
		logger.Fatalw("influx init failed", "err", err)
	}
	defer store.Close()

	m := metrics.New(nil)
	svc, err := ingest.NewService(consumer, store, store, memory.New(), m, logger)
	if err != nil {
		logger.Fatalw("ingest init failed", "err", err)
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:           ingest.NewHTTPMux(svc, store.Ready, m.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infow("ingest: HTTP listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("http server error", "err", err)
		}
	}()

	go svc.Start(ctx)

	<-ctx.Done()
	stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	logger.Info("ingest: shutdown complete")
}
