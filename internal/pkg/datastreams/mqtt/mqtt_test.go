package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ohowland/switchgear/internal/pkg/root"
	"gotest.tools/v3/assert"
)

type fakeToken struct {
	done bool
	err  error
}

func (t fakeToken) Wait() bool                     { return t.done }
func (t fakeToken) WaitTimeout(time.Duration) bool { return t.done }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type publication struct {
	topic    string
	qos      byte
	retained bool
}

type fakeClient struct {
	connect      fakeToken
	publish      fakeToken
	publications []publication
	disconnected bool
}

func (c *fakeClient) Connect() paho_mqtt.Token {
	return c.connect
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho_mqtt.Token {
	c.publications = append(c.publications, publication{topic, qos, retained})
	return c.publish
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func newWriter(c *fakeClient) *Writer {
	return &Writer{
		config: Config{Broker: "tcp://broker:1883", Topic: "plant"},
		client: c,
	}
}

func snapshot(t *testing.T) root.Snapshot {
	sys, err := root.NewSystem(root.Config{Seed: 9})
	assert.NilError(t, err)
	return sys.Snapshot()
}

func TestTopics(t *testing.T) {
	w := newWriter(&fakeClient{})
	assert.Equal(t, w.SnapshotTopic(), "plant/snapshot")
	assert.Equal(t, w.DeviceTopic("feeder5"), "plant/device/feeder5")
}

func TestOpen(t *testing.T) {
	w := newWriter(&fakeClient{connect: fakeToken{done: true}})
	assert.NilError(t, w.Open(context.Background()))
}

func TestOpenTimeout(t *testing.T) {
	w := newWriter(&fakeClient{connect: fakeToken{done: false}})
	err := w.Open(context.Background())
	assert.Assert(t, errors.Is(err, errTimeout))
	assert.ErrorContains(t, err, "tcp://broker:1883")
}

func TestOpenRefused(t *testing.T) {
	refused := errors.New("connection refused")
	w := newWriter(&fakeClient{connect: fakeToken{done: true, err: refused}})
	assert.Assert(t, errors.Is(w.Open(context.Background()), refused))
}

func TestWrite(t *testing.T) {
	c := &fakeClient{publish: fakeToken{done: true}}
	w := newWriter(c)

	assert.NilError(t, w.Write(context.Background(), snapshot(t)))
	assert.Equal(t, len(c.publications), 11)
	assert.Equal(t, c.publications[0].topic, "plant/snapshot")
	assert.Equal(t, c.publications[6].topic, "plant/device/gen1")
	for _, p := range c.publications {
		assert.Equal(t, p.qos, byte(0))
		assert.Assert(t, !p.retained)
	}
}

func TestWriteStopsOnError(t *testing.T) {
	c := &fakeClient{publish: fakeToken{done: true, err: errors.New("not connected")}}
	w := newWriter(c)

	err := w.Write(context.Background(), snapshot(t))
	assert.ErrorContains(t, err, "publish plant/snapshot")
	assert.Equal(t, len(c.publications), 1)
}

func TestClose(t *testing.T) {
	c := &fakeClient{}
	assert.NilError(t, newWriter(c).Close())
	assert.Assert(t, c.disconnected)
}

func TestNew(t *testing.T) {
	w := New(Config{Broker: "tcp://127.0.0.1:1883", ClientID: "switchgear", Topic: "plant"})
	assert.Equal(t, w.Name(), "mqtt")
	assert.Assert(t, w.client != nil)
}
