// Package rabbitmqtest provides in-memory stand-ins for the rabbitmq consumer
// and publisher.
package rabbitmqtest

import (
	"context"
	"encoding/json"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

// Message implements mqtt.Message.
type Message struct {
	TopicName string
	Body      []byte
	QoS       byte
	ID        uint16
	acked     bool
}

func NewMessage(topic string, body []byte) *Message {
	return &Message{TopicName: topic, Body: body, QoS: rabbitmq.QoSFor(topic)}
}

func (m *Message) Duplicate() bool   { return false }
func (m *Message) Qos() byte         { return m.QoS }
func (m *Message) Retained() bool    { return false }
func (m *Message) Topic() string     { return m.TopicName }
func (m *Message) MessageID() uint16 { return m.ID }
func (m *Message) Payload() []byte   { return m.Body }
func (m *Message) Ack()              { m.acked = true }

var _ mqtt.Message = (*Message)(nil)

// Consumer records the handler and lets tests deliver messages to it.
type Consumer struct {
	mu      sync.Mutex
	handler rabbitmq.Handler
	started chan struct{}
	once    sync.Once
}

func NewConsumer() *Consumer { return &Consumer{started: make(chan struct{})} }

func (c *Consumer) SetHandler(h rabbitmq.Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *Consumer) ConsumeMessage(ctx context.Context) {
	c.once.Do(func() { close(c.started) })
	<-ctx.Done()
}

// Started is closed once ConsumeMessage runs.
func (c *Consumer) Started() <-chan struct{} { return c.started }

// Deliver hands a message to the registered handler.
func (c *Consumer) Deliver(topic string, body []byte) error {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		return nil
	}
	return h(topic, NewMessage(topic, body))
}

// DeliverJSON encodes v and delivers it.
func (c *Consumer) DeliverJSON(topic string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Deliver(topic, b)
}

var _ rabbitmq.IConsumer = (*Consumer)(nil)

type Published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// Publisher records every publish. Err, when set, fails all publishes.
type Publisher struct {
	mu     sync.Mutex
	sent   []Published
	closed bool
	Err    error
	Topic  string
}

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
			return err
		}
		payload = b
	}
	return p.PublishToQos(p.Topic, 0, false, payload)
}

func (p *Publisher) PublishToQos(topic string, qos byte, retained bool, payload []byte) error {
	if p.Err != nil {
		return p.Err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, Published{Topic: topic, QoS: qos, Retained: retained, Payload: append([]byte(nil), payload...)})
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *Publisher) Sent() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.sent...)
}

func (p *Publisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var _ rabbitmq.IPublisher = (*Publisher)(nil)
