package rabbitmq

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type IPublisher interface {
	PublishMessage(message interface{}) error
	PublishToQos(topic string, qos byte, retained bool, payload []byte) error
	Close()
}

// Publisher sends to a default topic, or to any topic through PublishToQos.
type Publisher struct {
	client mqtt.Client
	topic  string
	log    *zap.SugaredLogger
}

func NewPublisher(client mqtt.Client, topic string, log *zap.SugaredLogger) *Publisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Publisher{client: client, topic: topic, log: log}
}

// PublishMessage sends message to the default topic at QoS 0. Strings and
// byte slices go out as-is; anything else is JSON encoded.
func (p *Publisher) PublishMessage(message interface{}) error {
	var payload []byte
	switch m := message.(type) {
	case string:
		payload = []byte(m)
	case []byte:
		payload = m
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		payload = b
	}
	return p.PublishToQos(p.topic, 0, false, payload)
}

func (p *Publisher) PublishToQos(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	p.log.Debugw("mqtt: published", "topic", topic, "qos", qos, "bytes", len(payload))
	return nil
}

func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
		p.log.Info("mqtt: publisher disconnected")
	}
}
