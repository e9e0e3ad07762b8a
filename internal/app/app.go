// Package app wires the engine, its stores and the weather stack from a
// Config. Services and agroctl share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/gdd"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/irrigation"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/suitability"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/catalog"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/config"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/metrics"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/store/influx"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/store/sqlstore"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/weather"
)

type Runtime struct {
	Config       *config.Config
	Log          *zap.SugaredLogger
	Metrics      *metrics.Metrics
	Catalog      *catalog.Catalog
	Store        *sqlstore.Store
	Observations gdd.ObservationSource
	Weather      weather.Provider // nil without an API key
	Tracker      *gdd.Tracker
	Engine       *irrigation.Engine
	Scorer       *suitability.Scorer

	closers []func() error
}

type options struct {
	registry     *prometheus.Registry
	observations gdd.ObservationSource
}

type Option func(*options)

func WithRegistry(reg *prometheus.Registry) Option { return func(o *options) { o.registry = reg } }

// WithObservations replaces the InfluxDB observation source.
func WithObservations(src gdd.ObservationSource) Option {
	return func(o *options) { o.observations = src }
}

func New(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, opts ...Option) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	r := &Runtime{Config: cfg, Log: log, Metrics: metrics.New(o.registry), Catalog: cat}

	r.Store, err = sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	r.closers = append(r.closers, r.Store.Close)

	r.Observations = o.observations
	if r.Observations == nil {
		ifx, err := influx.New(cfg.Influx, cfg.Location())
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		r.closers = append(r.closers, func() error { ifx.Close(); return nil })
		r.Observations = ifx
	}

	var closeWeather func() error
	r.Weather, closeWeather = NewWeather(cfg, log)
	if closeWeather != nil {
		r.closers = append(r.closers, closeWeather)
	}

	r.Tracker = gdd.NewTracker(cat, r.Store, r.Observations, r.Store,
		gdd.WithLogger(log),
		gdd.WithMetrics(r.Metrics),
		gdd.WithLocation(cfg.Location()),
		gdd.WithDefaultCeiling(cfg.GDD.DefaultCeiling),
		gdd.WithParallelism(cfg.GDD.Parallelism),
	)

	var provider irrigation.OutlookProvider
	if r.Weather != nil {
		provider = r.Weather
	}
	r.Engine = irrigation.NewEngine(cat, provider, Settings(cfg), log, r.Metrics)
	r.Scorer = suitability.NewScorer(cat, r.Metrics)
	return r, nil
}

// Settings maps the irrigation section of the config onto engine settings.
func Settings(cfg *config.Config) irrigation.Settings {
	return irrigation.Settings{
		MinDepthMM:         cfg.Irrigation.MinDepthMM,
		MaxDepthMM:         cfg.Irrigation.MaxDepthMM,
		ApplicationRateMMh: cfg.Irrigation.ApplicationRateMMh,
	}
}

// NewWeather builds OpenWeather behind a circuit breaker, cached in Redis when
// an address is configured. It returns nil when no API key is set.
func NewWeather(cfg *config.Config, log *zap.SugaredLogger) (weather.Provider, func() error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.Weather.APIKey == "" {
		log.Info("app: no weather API key, rain adjustment disabled")
		return nil, nil
	}
	var p weather.Provider = weather.NewBreaker(weather.NewOWMClient(cfg.Weather),
		cfg.Weather.BreakerFailures, cfg.Weather.BreakerOpenFor)
	if cfg.Redis.Addr == "" {
		return p, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return weather.NewCache(p, rdb, cfg.Redis.TTL, log), rdb.Close
}

// Ready checks the database.
func (r *Runtime) Ready(ctx context.Context) error { return r.Store.Ping(ctx) }

func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
