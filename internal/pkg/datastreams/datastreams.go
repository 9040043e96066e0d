/*
datastreams mirrors published snapshots into external systems. A Handler owns
one subscription to the system and hands every snapshot to its Writer.
*/

package datastreams

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/switchgear/internal/pkg/msg"
	"github.com/ohowland/switchgear/internal/pkg/root"
	"go.uber.org/zap"
)

// WriteTimeout bounds a single Write.
const WriteTimeout = 5 * time.Second

// Writer is a sink for snapshots.
type Writer interface {
	Name() string
	Open(context.Context) error
	Write(context.Context, root.Snapshot) error
	Close() error
}

// Handler feeds snapshots from a publisher to a Writer.
type Handler struct {
	pid       uuid.UUID
	publisher msg.Publisher
	writer    Writer
	logger    *zap.Logger
}

// New returns a Handler for w. Nothing is subscribed until Process runs.
func New(publisher msg.Publisher, w Writer) (*Handler, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	return &Handler{
		pid:       pid,
		publisher: publisher,
		writer:    w,
		logger:    zap.L().Named(w.Name()),
	}, nil
}

// PID is the subscriber id of the handler.
func (h *Handler) PID() uuid.UUID {
	return h.pid
}

// Name is the name of the writer.
func (h *Handler) Name() string {
	return h.writer.Name()
}

// Process opens the writer and forwards snapshots until ctx is done or the
// publisher closes. Failing to open is returned; failing writes are logged and
// the handler keeps going.
func (h *Handler) Process(ctx context.Context) error {
	if err := h.writer.Open(ctx); err != nil {
		return fmt.Errorf("%s: open: %w", h.writer.Name(), err)
	}
	defer func() {
		if err := h.writer.Close(); err != nil {
			h.logger.Warn("close", zap.Error(err))
		}
	}()

	inbox, err := h.publisher.Subscribe(h.pid, msg.Status)
	if err != nil {
		return fmt.Errorf("%s: subscribe: %w", h.writer.Name(), err)
	}
	defer h.publisher.Unsubscribe(h.pid)

	h.logger.Info("process started")
loop:
	for {
		select {
		case m, ok := <-inbox:
			if !ok {
				break loop
			}
			snap, ok := m.Payload().(root.Snapshot)
			if !ok {
				continue
			}
			h.write(ctx, snap)
		case <-ctx.Done():
			break loop
		}
	}
	h.logger.Info("process shutdown")
	return nil
}

func (h *Handler) write(ctx context.Context, snap root.Snapshot) {
	ctx, cancel := context.WithTimeout(ctx, WriteTimeout)
	defer cancel()
	if err := h.writer.Write(ctx, snap); err != nil {
		h.logger.Warn("write failed", zap.Error(err))
	}
}
