// Package decision turns aggregated sensor data into published irrigation
// decisions and keeps the fields' GDD history filled in.
package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/gdd"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/dedup"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

const defaultDecisionTopic = "event/irrigationDecision/{field}/{sensor}"

type FieldRepository interface {
	Field(ctx context.Context, id string) (entities.FieldState, error)
}

type Decider interface {
	Decide(ctx context.Context, field entities.FieldState, snap entities.SensorSnapshot) (messages.IrrigationDecision, error)
}

type GapFiller interface {
	FillGapsAll(ctx context.Context, fieldIDs []string) ([]gdd.BatchResult, error)
}

type Controller struct {
	consumer  rabbitmq.IConsumer
	publisher rabbitmq.IPublisher
	fields    FieldRepository
	engine    Decider
	tracker   GapFiller

	decisionTopicTmpl string
	fillInterval      time.Duration
	decideTimeout     time.Duration

	deduper *dedup.Deduper
	log     *zap.SugaredLogger
}

type Option func(*Controller)

// WithGapFill runs tracker.FillGapsAll at start and then every interval.
func WithGapFill(tracker GapFiller, interval time.Duration) Option {
	return func(c *Controller) {
		c.tracker = tracker
		c.fillInterval = interval
	}
}

func WithDecisionTopic(tmpl string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(tmpl) != "" {
			c.decisionTopicTmpl = tmpl
		}
	}
}

func WithLogger(l *zap.SugaredLogger) Option { return func(c *Controller) { c.log = l } }

func NewController(consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher, fields FieldRepository,
	engine Decider, opts ...Option) (*Controller, error) {
	if fields == nil || engine == nil {
		return nil, errors.New("decision: field repository and engine are required")
	}
	c := &Controller{
		consumer:          consumer,
		publisher:         publisher,
		fields:            fields,
		engine:            engine,
		decisionTopicTmpl: defaultDecisionTopic,
		fillInterval:      24 * time.Hour,
		decideTimeout:     10 * time.Second,
		deduper:           dedup.New(10*time.Minute, 20000),
		log:               zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(c)
	}
	consumer.SetHandler(c.handleAggregated)
	return c, nil
}

// Start consumes aggregated data and runs the gap-fill tick until ctx is done.
func (c *Controller) Start(ctx context.Context) {
	go c.consumer.ConsumeMessage(ctx)

	if c.tracker == nil || c.fillInterval <= 0 {
		<-ctx.Done()
		return
	}
	c.fillGaps(ctx)
	ticker := time.NewTicker(c.fillInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fillGaps(ctx)
		}
	}
}

func (c *Controller) fillGaps(ctx context.Context) {
	results, err := c.tracker.FillGapsAll(ctx, nil)
	if err != nil {
		c.log.Warnw("controller: gap fill aborted", "err", err)
		return
	}
	created, failed := 0, 0
	for _, r := range results {
		created += r.Created
		failed += r.Failed
		if r.Err != "" {
			c.log.Warnw("controller: gap fill field failed", "field", r.FieldID, "err", r.Err)
		}
	}
	c.log.Infow("controller: gap fill done", "fields", len(results), "created", created, "failed", failed)
}

func (c *Controller) handleAggregated(topic string, msg mqtt.Message) error {
	// drop QoS1 redeliveries before decoding
	if c.deduper != nil && !c.deduper.ShouldProcessPayload(msg.Payload()) {
		return nil
	}

	var s messages.SensorData
	if err := json.Unmarshal(msg.Payload(), &s); err != nil {
		c.log.Warnw("controller: bad payload", "topic", topic, "err", err)
		return nil
	}
	if !s.Aggregated {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.decideTimeout)
	defer cancel()

	field, err := c.fields.Field(ctx, s.FieldID)
	if err != nil {
		if apperr.IsOperational(err) {
			c.log.Warnw("controller: skipping reading", "field", s.FieldID, "sensor", s.SensorID, "err", err)
			return nil
		}
		return fmt.Errorf("load field %s: %w", s.FieldID, err)
	}

	d, err := c.engine.Decide(ctx, field, s.Snapshot())
	if err != nil {
		if apperr.IsOperational(err) {
			c.log.Warnw("controller: no decision", "field", s.FieldID, "sensor", s.SensorID, "err", err)
			return nil
		}
		return fmt.Errorf("decide %s: %w", s.FieldID, err)
	}
	return c.publishDecision(d)
}

func (c *Controller) publishDecision(d messages.IrrigationDecision) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	sensor := d.SensorID
	if sensor == "" {
		sensor = "field"
	}
	topic := strings.NewReplacer("{field}", d.FieldID, "{sensor}", sensor).Replace(c.decisionTopicTmpl)

	if err := c.publisher.PublishToQos(topic, 1, false, b); err != nil {
		c.log.Errorw("controller: publish decision failed", "topic", topic, "err", err)
		return err
	}
	c.log.Infow("controller: decision published", "topic", topic, "decision", d.Decision,
		"urgency", d.Urgency, "depth_mm", d.SuggestedDepthMm, "duration_min", d.SuggestedDurationMin)
	return nil
}
