package virtual

import (
	"math/rand"

	"github.com/ohowland/switchgear/internal/pkg/asset"
)

// Jitter bounds applied by Step.
const (
	mainVoltWindow  = 200.0
	otherVoltWindow = 50.0
	ampWindow       = 10.0
	kwWindow        = 50.0

	genKWBase  = -600.0
	genKWRange = 100.0
)

// SystemModel perturbs the readings of closed devices once per tick.
// Mains and feeders random-walk their current and power with no mean
// reversion, so over a long run the values drift without bound.
// Voltage is re-drawn around nominal each tick.
type SystemModel struct {
	rand *rand.Rand
}

// NewSystemModel returns a model drawing from r. r is not safe for concurrent
// use; the caller serializes calls to Step.
func NewSystemModel(r *rand.Rand) *SystemModel {
	return &SystemModel{rand: r}
}

// Step returns the state one tick after prev. prev itself is not modified.
func (m *SystemModel) Step(prev asset.State) asset.State {
	return prev.Map(m.jitter)
}

func (m *SystemModel) jitter(d asset.Device) asset.Device {
	status := d.Status()
	if !status.Closed {
		return d
	}

	cfg := d.Config()
	nominal := cfg.NominalVolt()

	switch cfg.Role {
	case asset.TieBreaker:
		return d
	case asset.Generator:
		kw := genKWBase - m.rand.Float64()*genKWRange
		status.Volt = nominal + m.spread(otherVoltWindow)
		status.Amp = kw / (nominal / 1000)
		status.KW = kw
	default:
		window := otherVoltWindow
		if cfg.Role == asset.Main {
			window = mainVoltWindow
		}
		status.Volt = nominal + m.spread(window)
		status.Amp += m.spread(ampWindow)
		status.KW += m.spread(kwWindow)
	}
	return d.WithStatus(status)
}

// spread draws uniformly from [-w/2, w/2).
func (m *SystemModel) spread(w float64) float64 {
	return (m.rand.Float64() - 0.5) * w
}
