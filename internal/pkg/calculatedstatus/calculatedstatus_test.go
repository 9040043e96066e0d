package calculatedstatus

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ohowland/switchgear/internal/pkg/asset"
	"github.com/ohowland/switchgear/internal/pkg/asset/breaker"
	"gotest.tools/v3/assert"
)

func newState(t *testing.T) asset.State {
	s, err := asset.NewState()
	assert.NilError(t, err)
	return s
}

func TestCalculateInitial(t *testing.T) {
	c := Calculate(newState(t))

	net := 5850.0 + 5680 + 1040 + 950 - 610 + 1120 + 1210 - 660 + 990
	assert.Assert(t, math.Abs(c.NetKW-net) < 1e-9)
	assert.Equal(t, c.GenerationKW, 1270.0)
	assert.Equal(t, c.ClosedCount, 9)
	assert.Equal(t, c.DeviceCount, 10)
}

func TestCalculateOpenGenerator(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	s, err := breaker.Toggle(newState(t), asset.Gen1, r)
	assert.NilError(t, err)

	c := Calculate(s)
	assert.Equal(t, c.GenerationKW, 660.0)
	assert.Equal(t, c.ClosedCount, 8)
}

func TestCalculateAllOpen(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	s := newState(t)
	for _, id := range asset.IDs() {
		var err error
		s, err = breaker.Set(s, id, false, r)
		assert.NilError(t, err)
	}

	assert.Equal(t, Calculate(s), Status{DeviceCount: 10})
}
