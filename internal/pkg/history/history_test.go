package history

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/ohowland/switchgear/internal/pkg/asset"
	"github.com/ohowland/switchgear/internal/pkg/asset/breaker"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newState(t *testing.T) asset.State {
	s, err := asset.NewState()
	assert.NilError(t, err)
	return s
}

func TestNewSample(t *testing.T) {
	sample := NewSample(newState(t), epoch)

	assert.Equal(t, sample, Sample{
		Time:      "12:00:00",
		Timestamp: epoch,
		Main1:     5850,
		Main2:     5680,
		Gen1:      610,
		Gen2:      660,
	})
}

func TestSampleOpenDevicesAreZero(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	s := newState(t)
	for _, id := range []asset.ID{asset.Main1, asset.Gen2} {
		var err error
		s, err = breaker.Toggle(s, id, r)
		assert.NilError(t, err)
	}

	sample := NewSample(s, epoch)
	assert.Equal(t, sample.Main1, 0.0)
	assert.Equal(t, sample.Gen2, 0.0)
	assert.Equal(t, sample.Main2, 5680.0)
}

func TestBufferBounded(t *testing.T) {
	b := NewBuffer(DefaultSize)
	s := newState(t)

	for i := 0; i < 20; i++ {
		b.Record(s, epoch.Add(time.Duration(i)*time.Second))
		assert.Assert(t, b.Len() <= 15)
	}

	samples := b.Samples()
	assert.Equal(t, len(samples), 15)
	for i, sample := range samples {
		assert.Equal(t, sample.Timestamp, epoch.Add(time.Duration(i+5)*time.Second))
	}
}

func TestBufferBelowCapacity(t *testing.T) {
	b := NewBuffer(DefaultSize)
	s := newState(t)
	for i := 0; i < 3; i++ {
		b.Record(s, epoch.Add(time.Duration(i)*time.Second))
	}
	assert.Equal(t, b.Len(), 3)
	assert.Equal(t, b.Samples()[0].Timestamp, epoch)
}

func TestSamplesIsACopy(t *testing.T) {
	b := NewBuffer(2)
	b.Record(newState(t), epoch)

	samples := b.Samples()
	samples[0].Main1 = -1
	assert.Equal(t, b.Samples()[0].Main1, 5850.0)
}

func TestNonPositiveSize(t *testing.T) {
	assert.Equal(t, NewBuffer(0).Size(), DefaultSize)
	assert.Equal(t, NewBuffer(-3).Size(), DefaultSize)
}

func TestSampleJSONKeys(t *testing.T) {
	body, err := json.Marshal(NewSample(newState(t), epoch))
	assert.NilError(t, err)

	for _, key := range []string{`"Time":"12:00:00"`, `"Timestamp"`, `"Main1":5850`, `"Main2":5680`, `"Gen1":610`, `"Gen2":660`} {
		assert.Check(t, is.Contains(string(body), key))
	}
}
