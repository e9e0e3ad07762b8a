// Package ingest persists raw sensor readings to InfluxDB and keeps the latest
// snapshot of every field in memory.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/metrics"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

type ReadingWriter interface {
	WriteReading(ctx context.Context, d messages.SensorData) error
}

// LatestSource is the Influx side of /data/latest.
type LatestSource interface {
	LatestReadings(ctx context.Context, minutes int) ([]messages.SensorData, error)
}

type SnapshotCache interface {
	PutSnapshot(snap entities.SensorSnapshot)
	LatestSnapshot(ctx context.Context, fieldID string) (entities.SensorSnapshot, error)
	Snapshots() []entities.SensorSnapshot
}

type Service struct {
	consumer rabbitmq.IConsumer
	writer   ReadingWriter
	latest   LatestSource
	cache    SnapshotCache
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger
}

func NewService(consumer rabbitmq.IConsumer, writer ReadingWriter, latest LatestSource,
	cache SnapshotCache, m *metrics.Metrics, log *zap.SugaredLogger) (*Service, error) {
	if writer == nil || cache == nil {
		return nil, errors.New("ingest: writer and cache are required")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{consumer: consumer, writer: writer, latest: latest, cache: cache, metrics: m, log: log}, nil
}

// Start consumes until ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.consumer.SetHandler(func(topic string, msg mqtt.Message) error {
		return s.handle(ctx, topic, msg.Payload())
	})
	s.consumer.ConsumeMessage(ctx)
}

func (s *Service) handle(ctx context.Context, topic string, payload []byte) error {
	var d messages.SensorData
	if err := json.Unmarshal(payload, &d); err != nil {
		s.log.Warnw("ingest: invalid JSON", "topic", topic, "err", err)
		return nil // do not block the stream
	}
	if d.FieldID == "" || d.SensorID == "" {
		s.log.Warnw("ingest: reading without field or sensor", "topic", topic)
		return nil
	}

	snap := d.Snapshot()
	d.VWC, d.SoilTemp = snap.VWC, snap.SoilTemp

	if err := s.writer.WriteReading(ctx, d); err != nil {
		s.log.Errorw("ingest: write failed", "field", d.FieldID, "sensor", d.SensorID, "err", err)
		return fmt.Errorf("persist reading: %w", err)
	}
	s.cache.PutSnapshot(snap)

	if s.metrics != nil {
		kind := "raw"
		if d.Aggregated {
			kind = "aggregated"
		}
		s.metrics.ReadingsIngested.WithLabelValues(kind).Inc()
	}
	s.log.Debugw("ingest: stored reading", "field", d.FieldID, "sensor", d.SensorID, "vwc", d.VWC, "soil_temp", d.SoilTemp)
	return nil
}

// LatestCache returns the cached snapshots as wire payloads.
func (s *Service) LatestCache() []messages.SensorData {
	snaps := s.cache.Snapshots()
	out := make([]messages.SensorData, 0, len(snaps))
	for _, sn := range snaps {
		out = append(out, messages.SensorData{
			FieldID:   sn.FieldID,
			SensorID:  sn.SensorID,
			VWC:       sn.VWC,
			SoilTemp:  sn.SoilTemp,
			AirTemp:   sn.AirTemp,
			Timestamp: sn.TakenAt,
		})
	}
	return out
}

func (s *Service) QueryLatestFromInflux(ctx context.Context, minutes int) ([]messages.SensorData, error) {
	if s.latest == nil {
		return nil, errors.New("no influx source configured")
	}
	return s.latest.LatestReadings(ctx, minutes)
}
