package root

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/switchgear/internal/pkg/asset"
	"github.com/ohowland/switchgear/internal/pkg/asset/breaker"
	"github.com/ohowland/switchgear/internal/pkg/bus"
	"github.com/ohowland/switchgear/internal/pkg/calculatedstatus"
	"github.com/ohowland/switchgear/internal/pkg/history"
	"github.com/ohowland/switchgear/internal/pkg/msg"
	"github.com/ohowland/switchgear/internal/pkg/virtual"
	"go.uber.org/zap"
)

// DefaultTick is the simulation period.
const DefaultTick = 2000 * time.Millisecond

// Config holds the tunables of the simulation.
type Config struct {
	Tick        time.Duration
	HistorySize int
	// Seed fixes the random source. Zero seeds from the clock.
	Seed int64
}

// System is the root node of the switchgear. It owns the device state and
// the history window, and is the single writer of both.
type System struct {
	mux       *sync.RWMutex
	pid       uuid.UUID
	state     asset.State
	history   *history.Buffer
	model     *virtual.SystemModel
	rand      *rand.Rand
	publisher *msg.PubSub
	config    Config
	logger    *zap.Logger
}

// NewSystem returns a System in the initial diagram position.
func NewSystem(cfg Config) (*System, error) {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = history.DefaultSize
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}

	state, err := asset.NewState()
	if err != nil {
		return nil, err
	}

	r := rand.New(rand.NewSource(seed))

	return &System{
		mux:       &sync.RWMutex{},
		pid:       pid,
		state:     state,
		history:   history.NewBuffer(cfg.HistorySize),
		model:     virtual.NewSystemModel(r),
		rand:      r,
		publisher: msg.NewPublisher(pid),
		config:    cfg,
		logger:    zap.L().Named("root"),
	}, nil
}

// PID is an accessor for the system's process id.
func (s *System) PID() uuid.UUID {
	return s.pid
}

// Config returns the effective configuration.
func (s *System) Config() Config {
	return s.config
}

// Subscribe is part of the msg.Publisher interface. Status messages carry a
// Snapshot, Config messages carry []asset.Config.
func (s *System) Subscribe(pid uuid.UUID, topic msg.Topic) (<-chan msg.Msg, error) {
	return s.publisher.Subscribe(pid, topic)
}

// Unsubscribe is part of the msg.Publisher interface.
func (s *System) Unsubscribe(pid uuid.UUID) {
	s.publisher.Unsubscribe(pid)
}

// Snapshot returns a consistent view of the system.
func (s *System) Snapshot() Snapshot {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return newSnapshot(s.state, s.history.Samples(), time.Now())
}

// Toggle flips breaker id and publishes the result.
func (s *System) Toggle(id asset.ID) (asset.Device, error) {
	return s.apply(id, func(st asset.State) (asset.State, error) {
		return breaker.Toggle(st, id, s.rand)
	})
}

// Set drives breaker id to the requested position and publishes the result.
func (s *System) Set(id asset.ID, closed bool) (asset.Device, error) {
	return s.apply(id, func(st asset.State) (asset.State, error) {
		return breaker.Set(st, id, closed, s.rand)
	})
}

func (s *System) apply(id asset.ID, fn func(asset.State) (asset.State, error)) (asset.Device, error) {
	s.mux.Lock()
	next, err := fn(s.state)
	if err != nil {
		s.mux.Unlock()
		return asset.Device{}, err
	}
	s.state = next
	s.publisher.Publish(msg.Status, newSnapshot(s.state, s.history.Samples(), time.Now()))
	s.mux.Unlock()

	d, err := next.Device(id)
	if err != nil {
		return asset.Device{}, err
	}

	s.logger.Info("breaker operated",
		zap.String("device", string(id)),
		zap.Bool("closed", d.Closed()),
	)
	return d, nil
}

// Tick advances the simulation one period. The history sample is taken from
// the state as it stood before this tick's jitter, so the trend lags the
// device readings by one tick.
func (s *System) Tick(now time.Time) Snapshot {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.history.Record(s.state, now)
	s.state = s.model.Step(s.state)
	snap := newSnapshot(s.state, s.history.Samples(), now)

	// published under the lock so subscribers see snapshots in write order
	s.publisher.Publish(msg.Status, snap)
	return snap
}

// Run ticks the simulation every configured period until ctx is done.
// The device catalogue is published once on msg.Config before the first tick.
func (s *System) Run(ctx context.Context) error {
	s.logger.Info("starting", zap.Duration("tick", s.config.Tick))
	s.publisher.Publish(msg.Config, asset.Configs())
	s.mux.Lock()
	s.publisher.Publish(msg.Status, newSnapshot(s.state, s.history.Samples(), time.Now()))
	s.mux.Unlock()

	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()
loop:
	for {
		select {
		case now := <-ticker.C:
			s.Tick(now)
		case <-ctx.Done():
			break loop
		}
	}
	s.logger.Info("stopped")
	return nil
}

// Close ends every subscription to the system.
func (s *System) Close() {
	s.publisher.Close()
}

// Snapshot is an immutable view of the system at one instant: the device
// records, the derived bus energization, aggregates and the trend window.
type Snapshot struct {
	Time      time.Time               `json:"Time"`
	Devices   []asset.Device          `json:"Devices"`
	Buses     bus.Energization        `json:"Buses"`
	Energized map[asset.ID]bool       `json:"Energized"`
	Summary   calculatedstatus.Status `json:"Summary"`
	History   []history.Sample        `json:"History"`
	state     asset.State
}

func newSnapshot(st asset.State, samples []history.Sample, now time.Time) Snapshot {
	return Snapshot{
		Time:      now,
		Devices:   st.Devices(),
		Buses:     bus.Resolve(st),
		Energized: bus.EnergizedDevices(st),
		Summary:   calculatedstatus.Calculate(st),
		History:   samples,
		state:     st,
	}
}

// State returns the device state the snapshot was taken from.
func (s Snapshot) State() asset.State {
	return s.state
}

// Device looks up one device of the snapshot.
func (s Snapshot) Device(id asset.ID) (asset.Device, error) {
	return s.state.Device(id)
}
