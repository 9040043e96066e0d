package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/ohowland/switchgear/internal/pkg/asset"
	"github.com/ohowland/switchgear/internal/pkg/root"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection holds one document per device, keyed by id.
const Collection = "deviceStatus"

// Config of the MongoDB writer.
type Config struct {
	URI      string
	Database string
}

type collection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{},
		opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Writer mirrors the latest device records into MongoDB. The collection is
// dropped on Open; nothing is ever read back.
type Writer struct {
	config Config
	client *mongo.Client
	coll   collection
}

func New(cfg Config) *Writer {
	return &Writer{config: cfg}
}

func (w *Writer) Name() string {
	return "mongodb"
}

func (w *Writer) Open(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(w.config.URI))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return err
	}

	coll := client.Database(w.config.Database).Collection(Collection)
	if err := coll.Drop(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("drop %s: %w", Collection, err)
	}

	w.client = client
	w.coll = coll
	return nil
}

func (w *Writer) Write(ctx context.Context, snap root.Snapshot) error {
	if w.coll == nil {
		return errors.New("not connected")
	}

	opts := options.Update().SetUpsert(true)
	for _, d := range snap.Devices {
		_, err := w.coll.UpdateOne(ctx, bson.M{"id": string(d.ID())}, statusUpdate(d, snap), opts)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", d.ID(), err)
		}
	}
	return nil
}

func (w *Writer) Close() error {
	if w.client == nil {
		return nil
	}
	err := w.client.Disconnect(context.Background())
	w.client = nil
	w.coll = nil
	return err
}

func statusUpdate(d asset.Device, snap root.Snapshot) bson.D {
	st := d.Status()
	return bson.D{
		{Key: "$set", Value: bson.M{
			"id":        string(d.ID()),
			"pid":       d.PID().String(),
			"name":      d.Name(),
			"closed":    st.Closed,
			"volt":      st.Volt,
			"amp":       st.Amp,
			"kw":        st.KW,
			"energized": snap.Energized[d.ID()],
			"updated":   snap.Time,
		}},
	}
}
