package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/app"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/config"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/logging"
	agronomyapi "github.com/LeonardoBeccarini/sdcc_agronomy/internal/services/agronomy-api"
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

	lis, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.GRPC.Port))
	if err != nil {
		logger.Fatalw("listen failed", "err", err)
	}
	srv := grpc.NewServer()
	agronomyapi.RegisterAgronomyServer(srv, agronomyapi.NewGrpcHandler(rt.Scorer, rt.Engine, rt.Tracker, rt.Store, logger))
	hs := health.NewServer()
	hs.SetServingStatus(agronomyapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

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
	httpSrv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("http server error", "err", err)
		}
	}()
	go func() {
		logger.Infow("api: gRPC listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Errorw("grpc serve error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	hs.Shutdown()
	srv.GracefulStop()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)
	logger.Info("api: shutdown complete")
}
