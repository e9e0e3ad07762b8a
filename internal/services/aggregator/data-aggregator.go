// Package aggregator averages raw readings per sensor over a fixed interval and
// republishes them as aggregated SensorData.
package aggregator

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

type sensorKey struct {
	field  string
	sensor string
}

type DataAggregatorService struct {
	consumer            rabbitmq.IConsumer
	publisher           rabbitmq.IPublisher
	topicTemplate       string // sensor/aggregated/{field}/{sensor}
	buffer              map[sensorKey][]messages.SensorData
	mutex               sync.Mutex
	aggregationInterval time.Duration
	log                 *zap.SugaredLogger
	now                 func() time.Time
}

func NewDataAggregatorService(consumer rabbitmq.IConsumer, publisher rabbitmq.IPublisher,
	topicTemplate string, aggregationInterval time.Duration, log *zap.SugaredLogger) *DataAggregatorService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if aggregationInterval <= 0 {
		aggregationInterval = time.Minute
	}
	return &DataAggregatorService{
		consumer:            consumer,
		publisher:           publisher,
		topicTemplate:       topicTemplate,
		aggregationInterval: aggregationInterval,
		buffer:              make(map[sensorKey][]messages.SensorData),
		log:                 log,
		now:                 time.Now,
	}
}

func (d *DataAggregatorService) messageHandler(topic string, message mqtt.Message) error {
	var sensorData messages.SensorData
	if err := json.Unmarshal(message.Payload(), &sensorData); err != nil {
		d.log.Warnw("aggregator: invalid JSON", "topic", topic, "err", err)
		return err
	}
	if sensorData.Aggregated || sensorData.SensorID == "" {
		return nil
	}
	k := sensorKey{field: sensorData.FieldID, sensor: sensorData.SensorID}

	d.mutex.Lock()
	d.buffer[k] = append(d.buffer[k], sensorData)
	d.mutex.Unlock()

	d.log.Debugw("aggregator: buffered reading", "field", k.field, "sensor", k.sensor)
	return nil
}

// Start consumes in the background and publishes one aggregate per sensor on
// every tick. The buffer is flushed once more on shutdown.
func (d *DataAggregatorService) Start(ctx context.Context) {
	d.consumer.SetHandler(d.messageHandler)
	go d.consumer.ConsumeMessage(ctx)

	ticker := time.NewTicker(d.aggregationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.aggregateAndPublish()
			d.publisher.Close()
			return
		case <-ticker.C:
			d.aggregateAndPublish()
		}
	}
}

func (d *DataAggregatorService) aggregateAndPublish() int {
	d.mutex.Lock()
	pending := d.buffer
	d.buffer = make(map[sensorKey][]messages.SensorData, len(pending))
	d.mutex.Unlock()

	keys := make([]sensorKey, 0, len(pending))
	for k, readings := range pending {
		if len(readings) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].field != keys[j].field {
			return keys[i].field < keys[j].field
		}
		return keys[i].sensor < keys[j].sensor
	})

	published := 0
	for _, k := range keys {
		out := aggregate(k, pending[k], d.now())
		b, err := json.Marshal(out)
		if err != nil {
			d.log.Errorw("aggregator: marshal failed", "err", err)
			continue
		}
		topic := d.topicFor(k)
		if err := d.publisher.PublishToQos(topic, rabbitmq.QoSFor(topic), false, b); err != nil {
			d.log.Warnw("aggregator: publish failed", "topic", topic, "err", err)
			continue
		}
		published++
		d.log.Infow("aggregator: published", "field", k.field, "sensor", k.sensor,
			"samples", out.Samples, "vwc", out.VWC)
	}
	return published
}

func (d *DataAggregatorService) topicFor(k sensorKey) string {
	return strings.NewReplacer("{field}", k.field, "{sensor}", k.sensor).Replace(d.topicTemplate)
}

// aggregate averages the readings. Air temperature is averaged over the
// readings that carry it.
func aggregate(k sensorKey, readings []messages.SensorData, now time.Time) messages.SensorData {
	var vwc, soil, air float64
	airN := 0
	for _, r := range readings {
		vwc += r.VWC
		soil += r.SoilTemp
		if r.AirTemp != nil {
			air += *r.AirTemp
			airN++
		}
	}
	n := float64(len(readings))
	out := messages.SensorData{
		FieldID:    k.field,
		SensorID:   k.sensor,
		VWC:        round2(vwc / n),
		SoilTemp:   round2(soil / n),
		Samples:    len(readings),
		Aggregated: true,
		Timestamp:  now.UTC(),
	}
	if airN > 0 {
		a := round2(air / float64(airN))
		out.AirTemp = &a
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
