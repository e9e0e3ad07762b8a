// Package event keeps the history of irrigation decisions published by the
// decision service and serves it over HTTP.
package event

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/dedup"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

const decisionPrefix = "event/irrigationDecision/"

type Service struct {
	consumer rabbitmq.IConsumer
	writer   *Writer
	deduper  *dedup.Deduper
	log      *zap.SugaredLogger
}

func NewService(consumer rabbitmq.IConsumer, writer *Writer, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Service{
		consumer: consumer,
		writer:   writer,
		deduper:  dedup.New(10*time.Minute, 20000),
		log:      log,
	}
	consumer.SetHandler(s.handle)
	return s
}

// Start blocks until ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.consumer.ConsumeMessage(ctx)
}

func (s *Service) handle(topic string, m mqtt.Message) error {
	if topic == "" {
		topic = m.Topic()
	}
	if !strings.HasPrefix(topic, decisionPrefix) {
		return nil
	}
	if !s.deduper.ShouldProcessPayload(m.Payload()) {
		return nil
	}

	var d messages.IrrigationDecision
	if err := json.Unmarshal(m.Payload(), &d); err != nil {
		s.log.Warnw("event: bad decision payload", "topic", topic, "err", err)
		return nil
	}
	field, sensor := idsFromTopic(topic)
	if d.FieldID == "" {
		d.FieldID = field
	}
	if d.SensorID == "" {
		d.SensorID = sensor
	}
	if d.FieldID == "" || d.Decision == "" {
		s.log.Warnw("event: decision without field or outcome", "topic", topic)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writer.Write(ctx, d)
}
