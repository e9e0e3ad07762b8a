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

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/app"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/config"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/logging"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/services/decision"
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

	rt, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalw("runtime init failed", "err", err)
	}
	defer func() { _ = rt.Close() }()

	mqCfg := &rabbitmq.RabbitMQConfig{
		Host:     cfg.MQTT.Host,
		Port:     cfg.MQTT.Port,
		User:     cfg.MQTT.User,
		Password: cfg.MQTT.Password,
		ClientID: cfg.MQTT.ClientID + "-decision",
	}
	mqClient, err := rabbitmq.NewRabbitMQConn(ctx, mqCfg, logger)
	if err != nil {
		logger.Fatalw("mqtt connect failed", "err", err)
	}
	consumer := rabbitmq.NewConsumer(mqClient, logger, cfg.MQTT.AggregatedTopic)
	publisher := rabbitmq.NewPublisher(mqClient, "", logger)
	defer publisher.Close()

	ctrl, err := decision.NewController(consumer, publisher, rt.Store, rt.Engine,
		decision.WithLogger(logger),
		decision.WithDecisionTopic(cfg.MQTT.DecisionTopic),
		decision.WithGapFill(rt.Tracker, cfg.GDD.FillInterval),
	)
	if err != nil {
		logger.Fatalw("controller init failed", "err", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := rt.Ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", rt.Metrics.Handler())

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("http server error", "err", err)
		}
	}()

	logger.Infow("controller: running", "topic", cfg.MQTT.AggregatedTopic)
	ctrl.Start(ctx)

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	logger.Info("controller: shutdown complete")
}
