package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ohowland/switchgear/internal/pkg/root"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 10 * time.Second
	quiesceMillis  = 250
)

var errTimeout = errors.New("timed out")

// Config of the MQTT writer.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

type client interface {
	Connect() paho_mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho_mqtt.Token
	Disconnect(quiesce uint)
}

// Writer publishes every snapshot on <topic>/snapshot and every device record
// on <topic>/device/<id>, QoS 0 and not retained.
type Writer struct {
	config Config
	client client
}

// New returns a Writer backed by a paho client for cfg.
func New(cfg Config) *Writer {
	opts := paho_mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true)
	return &Writer{
		config: cfg,
		client: paho_mqtt.NewClient(opts),
	}
}

func (w *Writer) Name() string {
	return "mqtt"
}

func (w *Writer) Open(ctx context.Context) error {
	if err := wait(w.client.Connect(), connectTimeout); err != nil {
		return fmt.Errorf("connect %s: %w", w.config.Broker, err)
	}
	return nil
}

func (w *Writer) Write(ctx context.Context, snap root.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := w.publish(w.SnapshotTopic(), data); err != nil {
		return err
	}

	for _, d := range snap.Devices {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if err := w.publish(w.DeviceTopic(string(d.ID())), data); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) Close() error {
	w.client.Disconnect(quiesceMillis)
	return nil
}

// SnapshotTopic is the topic full snapshots are published on.
func (w *Writer) SnapshotTopic() string {
	return w.config.Topic + "/snapshot"
}

// DeviceTopic is the topic the record of device id is published on.
func (w *Writer) DeviceTopic(id string) string {
	return w.config.Topic + "/device/" + id
}

func (w *Writer) publish(topic string, payload []byte) error {
	if err := wait(w.client.Publish(topic, 0, false, payload), publishTimeout); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func wait(token paho_mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errTimeout
	}
	return token.Error()
}
