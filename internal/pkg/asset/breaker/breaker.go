package breaker

import (
	"math/rand"

	"github.com/ohowland/switchgear/internal/pkg/asset"
	"go.uber.org/zap"
)

// Toggle flips the position of breaker id and returns the resulting state.
// Readings are restored to nominal on close and zeroed on open, so the new
// state is plausible before the next simulation tick.
func Toggle(s asset.State, id asset.ID, r *rand.Rand) (asset.State, error) {
	d, err := s.Device(id)
	if err != nil {
		return s, err
	}
	return Set(s, id, !d.Closed(), r)
}

// Set drives breaker id to the requested position. Opening an open breaker
// leaves it zeroed. Closing a closed breaker re-runs the close action.
func Set(s asset.State, id asset.ID, closeRequest bool, r *rand.Rand) (asset.State, error) {
	d, err := s.Device(id)
	if err != nil {
		return s, err
	}

	sm := &stateMachine{stateOf(d.Status())}
	status := sm.run(closeRequest, d.Config().Role, r)

	zap.L().Named("breaker").Debug("transition",
		zap.String("device", string(id)),
		zap.String("state", sm.currentState.name()),
	)

	return s.With(d.WithStatus(status))
}

type stateMachine struct {
	currentState state
}

func (s *stateMachine) run(closeRequest bool, role asset.Role, r *rand.Rand) asset.Status {
	s.currentState = s.currentState.transition(closeRequest)
	return s.currentState.action(role, r)
}

type state interface {
	name() string
	transition(closeRequest bool) state
	action(asset.Role, *rand.Rand) asset.Status
}

func stateOf(s asset.Status) state {
	if s.Closed {
		return closedState{}
	}
	return openState{}
}

type openState struct{}

func (openState) name() string {
	return "Open"
}

func (openState) transition(closeRequest bool) state {
	if closeRequest {
		return closedState{}
	}
	return openState{}
}

// action zeroes the readings regardless of role.
func (openState) action(asset.Role, *rand.Rand) asset.Status {
	return asset.Status{}
}

type closedState struct{}

func (closedState) name() string {
	return "Closed"
}

func (closedState) transition(closeRequest bool) state {
	if !closeRequest {
		return openState{}
	}
	return closedState{}
}

// action restores the nominal readings of the role.
func (closedState) action(role asset.Role, r *rand.Rand) asset.Status {
	switch role {
	case asset.Generator:
		return asset.Status{
			Closed: true,
			Volt:   asset.DistributionNominalVolt,
			Amp:    -80 - r.Float64()*20,
			KW:     -600 - r.Float64()*100,
		}
	case asset.Main:
		return asset.Status{
			Closed: true,
			Volt:   asset.MainNominalVolt,
			Amp:    240,
			KW:     5700,
		}
	case asset.TieBreaker:
		return asset.Status{
			Closed: true,
			Volt:   asset.DistributionNominalVolt,
			Amp:    50 + r.Float64()*20,
			KW:     300 + r.Float64()*100,
		}
	default:
		return asset.Status{
			Closed: true,
			Volt:   asset.DistributionNominalVolt,
			Amp:    140 + r.Float64()*30,
			KW:     1000 + r.Float64()*200,
		}
	}
}
