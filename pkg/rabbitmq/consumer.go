package rabbitmq

import (
	"context"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Handler processes one message. A returned error is logged; the message is
// not redelivered.
type Handler func(topic string, msg mqtt.Message) error

type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
}

// Consumer subscribes a handler to one or more topic filters.
type Consumer struct {
	client  mqtt.Client
	topics  []string
	handler Handler
	log     *zap.SugaredLogger
}

func NewConsumer(client mqtt.Client, log *zap.SugaredLogger, topics ...string) *Consumer {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Consumer{client: client, topics: topics, log: log}
}

func (c *Consumer) SetHandler(handler Handler) { c.handler = handler }

// QoSFor returns 1 for topics carrying aggregated data or decisions, 0 for the
// raw sensor stream.
func QoSFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "sensor/aggregated") ||
		strings.HasPrefix(t, "event/irrigationDecision") {
		return 1
	}
	return 0
}

// ConsumeMessage subscribes to every topic and blocks until ctx is done.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	for _, topic := range c.topics {
		token := c.client.Subscribe(topic, QoSFor(topic), func(_ mqtt.Client, msg mqtt.Message) {
			if c.handler == nil {
				c.log.Warnw("mqtt: no handler set", "topic", topic)
				return
			}
			if err := c.handler(msg.Topic(), msg); err != nil {
				c.log.Warnw("mqtt: handler failed", "topic", msg.Topic(), "err", err)
			}
		})
		if token.Wait() && token.Error() != nil {
			c.log.Errorw("mqtt: subscribe failed", "topic", topic, "err", token.Error())
			continue
		}
		c.log.Infow("mqtt: subscribed", "topic", topic)
	}

	<-ctx.Done()

	if c.client.IsConnected() {
		c.client.Unsubscribe(c.topics...).Wait()
	}
}
