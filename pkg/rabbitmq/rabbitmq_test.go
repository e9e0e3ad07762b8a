package rabbitmq

import (
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQoSFor(t *testing.T) {
	assert.Equal(t, byte(0), QoSFor("sensor/data/f1/s1"))
	assert.Equal(t, byte(1), QoSFor("sensor/aggregated/f1/s1"))
	assert.Equal(t, byte(1), QoSFor(" event/irrigationDecision/f1/s1"))
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

// publishClient records Publish calls; every other method is unused here.
type publishClient struct {
	mqtt.Client
	topic   string
	qos     byte
	payload interface{}
	err     error
}

func (c *publishClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.topic, c.qos, c.payload = topic, qos, payload
	return doneToken{err: c.err}
}

func TestPublisherEncodes(t *testing.T) {
	c := &publishClient{}
	p := NewPublisher(c, "sensor/aggregated", nil)

	require.NoError(t, p.PublishMessage(map[string]int{"vwc": 21}))
	assert.Equal(t, "sensor/aggregated", c.topic)
	assert.Equal(t, byte(0), c.qos)
	assert.JSONEq(t, `{"vwc":21}`, string(c.payload.([]byte)))

	require.NoError(t, p.PublishToQos("event/irrigationDecision/f1/s1", 1, false, []byte("x")))
	assert.Equal(t, byte(1), c.qos)

	c.err = assert.AnError
	err := p.PublishMessage("x")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
