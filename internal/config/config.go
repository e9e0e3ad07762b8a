// Package config loads service configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Influx     InfluxConfig     `yaml:"influx"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Weather    WeatherConfig    `yaml:"weather"`
	Irrigation IrrigationConfig `yaml:"irrigation"`
	GDD        GDDConfig        `yaml:"gdd"`
	HTTP       HTTPConfig       `yaml:"http"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Logging    LoggingConfig    `yaml:"logging"`

	CatalogPath string `yaml:"catalog_path"` // empty: embedded 20-crop catalog
	Timezone    string `yaml:"timezone"`
}

type MQTTConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	ClientID string `yaml:"client_id"`

	RawTopic        string `yaml:"raw_topic"`        // sensor/data/#
	AggregatedTopic string `yaml:"aggregated_topic"` // sensor/aggregated/#
	DecisionTopic   string `yaml:"decision_topic"`   // event/irrigationDecision/{field}/{sensor}
}

type InfluxConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres | sqlite
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"` // empty disables the outlook cache
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type WeatherConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	LookaheadHours  int           `yaml:"lookahead_hours"`
	RainThresholdMM float64       `yaml:"rain_threshold_mm"`
	Timeout         time.Duration `yaml:"timeout"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerOpenFor  time.Duration `yaml:"breaker_open_for"`
}

type IrrigationConfig struct {
	MinDepthMM         float64 `yaml:"min_depth_mm"`
	MaxDepthMM         float64 `yaml:"max_depth_mm"`
	ApplicationRateMMh float64 `yaml:"application_rate_mm_h"`
}

type GDDConfig struct {
	DefaultCeiling float64       `yaml:"default_ceiling"`
	FillInterval   time.Duration `yaml:"fill_interval"`
	Parallelism    int           `yaml:"parallelism"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type GRPCConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Host:            "localhost",
			Port:            1883,
			User:            "guest",
			Password:        "guest",
			ClientID:        "agronomy",
			RawTopic:        "sensor/data/#",
			AggregatedTopic: "sensor/aggregated/#",
			DecisionTopic:   "event/irrigationDecision/{field}/{sensor}",
		},
		Influx: InfluxConfig{
			URL:         "http://localhost:8086",
			Org:         "sdcc",
			Bucket:      "agri",
			Measurement: "soil_reading",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:agronomy.db?_pragma=busy_timeout(5000)",
		},
		Redis: RedisConfig{TTL: 30 * time.Minute},
		Weather: WeatherConfig{
			BaseURL:         "https://api.openweathermap.org/data/3.0/onecall",
			LookaheadHours:  48,
			RainThresholdMM: 5,
			Timeout:         5 * time.Second,
			BreakerFailures: 3,
			BreakerOpenFor:  30 * time.Second,
		},
		Irrigation: IrrigationConfig{
			MinDepthMM:         5,
			MaxDepthMM:         50,
			ApplicationRateMMh: 10,
		},
		GDD: GDDConfig{
			DefaultCeiling: 30,
			FillInterval:   24 * time.Hour,
			Parallelism:    4,
		},
		HTTP:     HTTPConfig{Port: 8080},
		GRPC:     GRPCConfig{Port: 50051},
		Logging:  LoggingConfig{Level: "info"},
		Timezone: "Europe/Rome",
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.MQTT.Host = env("RABBITMQ_HOST", c.MQTT.Host)
	c.MQTT.Port = envInt("RABBITMQ_PORT", c.MQTT.Port)
	c.MQTT.User = env("RABBITMQ_USER", c.MQTT.User)
	c.MQTT.Password = env("RABBITMQ_PASSWORD", c.MQTT.Password)
	c.MQTT.ClientID = env("MQTT_CLIENT_ID", c.MQTT.ClientID)

	c.Influx.URL = env("INFLUX_URL", c.Influx.URL)
	c.Influx.Token = env("INFLUX_TOKEN", c.Influx.Token)
	c.Influx.Org = env("INFLUX_ORG", c.Influx.Org)
	c.Influx.Bucket = env("INFLUX_BUCKET", c.Influx.Bucket)

	c.Database.Driver = env("DATABASE_DRIVER", c.Database.Driver)
	c.Database.DSN = env("DATABASE_DSN", c.Database.DSN)

	c.Redis.Addr = env("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = env("REDIS_PASSWORD", c.Redis.Password)

	c.Weather.APIKey = env("OWM_API_KEY", c.Weather.APIKey)
	c.Weather.LookaheadHours = envInt("WEATHER_LOOKAHEAD_HOURS", c.Weather.LookaheadHours)
	c.Weather.RainThresholdMM = getenvFloat("WEATHER_RAIN_THRESHOLD_MM", c.Weather.RainThresholdMM)

	c.Irrigation.MinDepthMM = getenvFloat("IRRIGATION_MIN_DEPTH_MM", c.Irrigation.MinDepthMM)
	c.Irrigation.MaxDepthMM = getenvFloat("IRRIGATION_MAX_DEPTH_MM", c.Irrigation.MaxDepthMM)
	c.Irrigation.ApplicationRateMMh = getenvFloat("IRRIGATION_RATE_MM_H", c.Irrigation.ApplicationRateMMh)

	c.HTTP.Port = envInt("HTTP_PORT", c.HTTP.Port)
	c.GRPC.Port = envInt("GRPC_PORT", c.GRPC.Port)
	c.Logging.Level = env("LOG_LEVEL", c.Logging.Level)
	c.CatalogPath = env("CROP_CATALOG_PATH", c.CatalogPath)
	c.Timezone = env("TZ", c.Timezone)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Irrigation.MinDepthMM < 0 || c.Irrigation.MinDepthMM > c.Irrigation.MaxDepthMM {
		errs = append(errs, fmt.Errorf("irrigation: min depth %.1f must be within [0, max depth %.1f]",
			c.Irrigation.MinDepthMM, c.Irrigation.MaxDepthMM))
	}
	if c.Irrigation.ApplicationRateMMh <= 0 {
		errs = append(errs, errors.New("irrigation: application rate must be positive"))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database: unknown driver %q", c.Database.Driver))
	}
	if c.Weather.LookaheadHours <= 0 {
		errs = append(errs, errors.New("weather: lookahead must be positive"))
	}
	if c.GDD.Parallelism < 1 {
		c.GDD.Parallelism = 1
	}
	return errors.Join(errs...)
}

// Lookahead is the forecast window used for rain adjustment.
func (w WeatherConfig) Lookahead() time.Duration {
	return time.Duration(w.LookaheadHours) * time.Hour
}

// Location resolves Timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone)); err == nil {
		return loc
	}
	return time.Local
}

// --------------------- small helpers ---------------------

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return def
	}
	return f
}
