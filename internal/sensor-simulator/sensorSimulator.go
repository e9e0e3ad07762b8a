// Package sensor_simulator publishes raw soil probe readings for local runs
// and reacts to the irrigation decisions the platform sends back.
package sensor_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/dedup"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type SensorSimulator struct {
	probe     Probe
	topic     string
	generator *DataGenerator
	publisher rabbitmq.IPublisher
	consumer  rabbitmq.IConsumer
	deduper   *dedup.Deduper
	log       *zap.SugaredLogger
}

// NewSensorSimulator publishes to topicTemplate with {field} and {sensor}
// substituted. consumer may be nil when decisions are not fed back.
func NewSensorSimulator(consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher,
	gen *DataGenerator, probe Probe, topicTemplate string, log *zap.SugaredLogger) *SensorSimulator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if topicTemplate == "" {
		topicTemplate = "sensor/data/{field}/{sensor}"
	}
	s := &SensorSimulator{
		probe:     probe,
		topic:     strings.NewReplacer("{field}", probe.FieldID, "{sensor}", probe.SensorID).Replace(topicTemplate),
		generator: gen,
		publisher: publisher,
		consumer:  consumer,
		deduper:   dedup.New(2*time.Minute, 10000),
		log:       log,
	}
	if consumer != nil {
		consumer.SetHandler(s.handleMessage)
	}
	return s
}

// Start publishes one reading per interval until ctx ends.
func (s *SensorSimulator) Start(ctx context.Context, interval time.Duration) {
	if s.consumer != nil {
		go s.consumer.ConsumeMessage(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.publisher.Close()
			return
		case <-ticker.C:
			if err := s.PublishOnce(); err != nil {
				s.log.Warnw("sensor: publish failed", "topic", s.topic, "err", err)
			}
		}
	}
}

// PublishOnce emits the current reading.
func (s *SensorSimulator) PublishOnce() error {
	sd := s.generator.Next(s.probe)
	payload, err := json.Marshal(sd)
	if err != nil {
		return err
	}
	s.log.Debugw("sensor: pub raw", "field", sd.FieldID, "sensor", sd.SensorID, "vwc", sd.VWC)
	return s.publisher.PublishToQos(s.topic, rabbitmq.QoSFor(s.topic), false, payload)
}

func (s *SensorSimulator) handleMessage(_ string, msg mqtt.Message) error {
	if !s.deduper.ShouldProcessPayload(msg.Payload()) {
		return nil
	}

	var d messages.IrrigationDecision
	if err := json.Unmarshal(msg.Payload(), &d); err != nil {
		return fmt.Errorf("invalid irrigation decision: %w", err)
	}
	if d.FieldID != s.probe.FieldID || (d.SensorID != "" && d.SensorID != s.probe.SensorID) {
		return nil
	}
	if d.Decision != entities.DecisionIrrigateNow {
		return nil
	}
	inc := s.generator.ApplyDepth(d.SuggestedDepthMm, s.probe.RootDepthCm)
	s.log.Infow("sensor: irrigation applied",
		"field", d.FieldID, "depth_mm", d.SuggestedDepthMm, "vwc_gain", round2(inc))
	return nil
}
