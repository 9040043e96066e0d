package natshandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	nats "github.com/nats-io/nats.go"
	"github.com/ohowland/switchgear/internal/pkg/root"
)

// Config of the NATS writer.
type Config struct {
	URL     string
	Subject string
}

type conn interface {
	Publish(subj string, data []byte) error
	Flush() error
	Close()
}

// Writer publishes every snapshot on <subject>.snapshot and every device
// record on <subject>.device.<id>.
type Writer struct {
	config Config
	dial   func(url string) (conn, error)
	nc     conn
}

// New returns a Writer for cfg. An empty URL means nats.DefaultURL.
func New(cfg Config) *Writer {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	return &Writer{
		config: cfg,
		dial: func(url string) (conn, error) {
			return nats.Connect(url, nats.Name("switchgear"))
		},
	}
}

func (w *Writer) Name() string {
	return "nats"
}

func (w *Writer) Open(ctx context.Context) error {
	nc, err := w.dial(w.config.URL)
	if err != nil {
		return err
	}
	w.nc = nc
	return nil
}

func (w *Writer) Write(ctx context.Context, snap root.Snapshot) error {
	if w.nc == nil {
		return errors.New("not connected")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := w.nc.Publish(w.SnapshotSubject(), data); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	for _, d := range snap.Devices {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		if err := w.nc.Publish(w.DeviceSubject(string(d.ID())), data); err != nil {
			return fmt.Errorf("publish %s: %w", d.ID(), err)
		}
	}
	return w.nc.Flush()
}

func (w *Writer) Close() error {
	if w.nc != nil {
		w.nc.Close()
		w.nc = nil
	}
	return nil
}

// SnapshotSubject is the subject full snapshots are published on.
func (w *Writer) SnapshotSubject() string {
	return w.config.Subject + ".snapshot"
}

// DeviceSubject is the subject the record of device id is published on.
func (w *Writer) DeviceSubject(id string) string {
	return w.config.Subject + ".device." + id
}
