package datastreams

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ohowland/switchgear/internal/pkg/asset"
	"github.com/ohowland/switchgear/internal/pkg/root"
	"gotest.tools/v3/assert"
)

type fakeWriter struct {
	mux      sync.Mutex
	openErr  error
	writeErr error
	opened   bool
	closed   bool
	written  []root.Snapshot
	wrote    chan struct{}
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{wrote: make(chan struct{}, 100)}
}

func (f *fakeWriter) Name() string { return "fake" }

func (f *fakeWriter) Open(context.Context) error {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.opened = true
	return f.openErr
}

func (f *fakeWriter) Write(_ context.Context, snap root.Snapshot) error {
	f.mux.Lock()
	f.written = append(f.written, snap)
	f.mux.Unlock()
	f.wrote <- struct{}{}
	return f.writeErr
}

func (f *fakeWriter) Close() error {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) snapshots() []root.Snapshot {
	f.mux.Lock()
	defer f.mux.Unlock()
	return append([]root.Snapshot(nil), f.written...)
}

func newSystem(t *testing.T) *root.System {
	sys, err := root.NewSystem(root.Config{Seed: 11})
	assert.NilError(t, err)
	return sys
}

func start(t *testing.T, h *Handler) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Process(ctx) }()
	return cancel, done
}

func TestProcessWritesSnapshots(t *testing.T) {
	sys := newSystem(t)
	w := newFakeWriter()
	h, err := New(sys, w)
	assert.NilError(t, err)

	cancel, done := start(t, h)

	// keep publishing until the subscription is in place
	deadline := time.After(2 * time.Second)
loop:
	for {
		_, err := sys.Toggle(asset.Feeder2)
		assert.NilError(t, err)
		select {
		case <-w.wrote:
			break loop
		case <-deadline:
			t.Fatal("timed out waiting for write")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	assert.NilError(t, <-done)
	assert.Assert(t, len(w.snapshots()) > 0)
	assert.Assert(t, w.closed)
}

func TestProcessOpenFailure(t *testing.T) {
	w := newFakeWriter()
	w.openErr = errors.New("connection refused")
	h, err := New(newSystem(t), w)
	assert.NilError(t, err)

	err = h.Process(context.Background())
	assert.ErrorContains(t, err, "fake: open: connection refused")
	assert.Assert(t, errors.Is(err, w.openErr))
}

func TestProcessSurvivesWriteErrors(t *testing.T) {
	sys := newSystem(t)
	w := newFakeWriter()
	w.writeErr = errors.New("broken pipe")
	h, err := New(sys, w)
	assert.NilError(t, err)

	cancel, done := start(t, h)
	defer cancel()

	deadline := time.After(2 * time.Second)
	for n := 0; n < 2; {
		sys.Tick(time.Now())
		select {
		case <-w.wrote:
			n++
		case <-deadline:
			t.Fatal("timed out waiting for writes")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	assert.NilError(t, <-done)
}

func TestProcessStopsWhenPublisherCloses(t *testing.T) {
	sys := newSystem(t)
	w := newFakeWriter()
	h, err := New(sys, w)
	assert.NilError(t, err)

	cancel, done := start(t, h)
	defer cancel()

	sys.Close()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("process did not stop")
	}
}
