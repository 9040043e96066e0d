package history

import (
	"math"
	"time"

	"github.com/ohowland/switchgear/internal/pkg/asset"
	"github.com/samber/lo"
)

// DefaultSize is the number of samples kept for trend display.
const DefaultSize = 15

// timeLabel is the wall-clock format of Sample.Time.
const timeLabel = "15:04:05"

// Sample is one point of the aggregate power trend. Generator output is
// stored as a magnitude, so every field is non-negative for a generator.
type Sample struct {
	Time      string    `json:"Time"`
	Timestamp time.Time `json:"Timestamp"`
	Main1     float64   `json:"Main1"`
	Main2     float64   `json:"Main2"`
	Gen1      float64   `json:"Gen1"`
	Gen2      float64   `json:"Gen2"`
}

// NewSample reads the mains and generators out of s. Open devices count as 0.
func NewSample(s asset.State, now time.Time) Sample {
	return Sample{
		Time:      now.Format(timeLabel),
		Timestamp: now,
		Main1:     kw(s, asset.Main1),
		Main2:     kw(s, asset.Main2),
		Gen1:      math.Abs(kw(s, asset.Gen1)),
		Gen2:      math.Abs(kw(s, asset.Gen2)),
	}
}

func kw(s asset.State, id asset.ID) float64 {
	d, err := s.Device(id)
	if err != nil || !d.Closed() {
		return 0
	}
	return d.Status().KW
}

// Buffer is a sliding window of the most recent samples. Buffer is not safe
// for concurrent use.
type Buffer struct {
	size    int
	samples []Sample
}

// NewBuffer returns an empty Buffer keeping at most size samples.
// A non-positive size falls back to DefaultSize.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{
		size:    size,
		samples: make([]Sample, 0, size+1),
	}
}

// Record samples s, appends the sample and evicts from the front.
func (b *Buffer) Record(s asset.State, now time.Time) Sample {
	sample := NewSample(s, now)
	b.Append(sample)
	return sample
}

// Append adds a sample, dropping the oldest once the buffer is full.
func (b *Buffer) Append(sample Sample) {
	b.samples = append(b.samples, sample)
	if len(b.samples) > b.size {
		b.samples = append(b.samples[:0], lo.Subset(b.samples, -b.size, uint(b.size))...)
	}
}

// Samples returns a copy of the buffer, oldest first.
func (b *Buffer) Samples() []Sample {
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Len is the number of samples held.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Size is the capacity of the window.
func (b *Buffer) Size() int {
	return b.size
}
